package config

/*
Описание конфигурационного файла
*/

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"gopkg.in/yaml.v2"
)

const defaultTokenTTLHours = 6

type Settings struct {
	Host          string                       `yaml:"host"`
	Port          string                       `yaml:"port"`
	ConnTTL       int                          `yaml:"conn_ttl"`
	LogLevel      string                       `yaml:"log_level"`
	LogFilePath   string                       `yaml:"log_file_path"`
	LogMaxAgeDays int                          `yaml:"log_max_age_days"`
	TokenSecret   string                       `yaml:"token_secret"`
	TokenTTLHours int                          `yaml:"token_ttl_hours"`
	Store         map[string]map[string]string `yaml:"storage"`
}

// GetConnTTL возвращает предельное время ожидания сообщения
// на постоянном соединении водителя.
func (s *Settings) GetConnTTL() time.Duration {
	return time.Duration(s.ConnTTL) * time.Second
}

func (s *Settings) GetListenAddress() string {
	return s.Host + ":" + s.Port
}

// GetTokenTTL возвращает срок действия выдаваемых токенов водителей.
func (s *Settings) GetTokenTTL() time.Duration {
	return time.Duration(s.TokenTTLHours) * time.Hour
}

func (s *Settings) GetLogLevel() log.Level {
	var lvl log.Level

	switch s.LogLevel {
	case "DEBUG":
		lvl = log.DebugLevel
	case "INFO":
		lvl = log.InfoLevel
	case "WARN":
		lvl = log.WarnLevel
	case "ERROR":
		lvl = log.ErrorLevel
	default:
		lvl = log.InfoLevel
	}
	return lvl
}

func New(confPath string) (Settings, error) {
	c := Settings{}
	data, err := os.ReadFile(confPath)
	if err != nil {
		return c, err
	}
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		return c, err
	}

	if c.Port == "" {
		c.Port = "3000"
	}

	if c.TokenSecret == "" {
		log.Warn("Секрет для подписи токенов не задан, используется значение по умолчанию. Не использовать в продакшене.")
		c.TokenSecret = "dev-secret-please-change"
	}

	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = defaultTokenTTLHours
	}

	if c.TokenTTLHours < 0 {
		log.Errorf("Некорректный срок действия токена (%d). Значение должно быть положительным. Используется значение по умолчанию (%d).", c.TokenTTLHours, defaultTokenTTLHours)
		c.TokenTTLHours = defaultTokenTTLHours
	}

	if c.ConnTTL < 0 {
		log.Errorf("Некорректный conn_ttl (%d). Значение не может быть отрицательным. Ограничение времени ожидания отключено.", c.ConnTTL)
		c.ConnTTL = 0
	}

	return c, err
}
