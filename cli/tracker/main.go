package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/daniil11ru/bustrack/cli/tracker/api"
	"github.com/daniil11ru/bustrack/cli/tracker/auth"
	"github.com/daniil11ru/bustrack/cli/tracker/cache"
	"github.com/daniil11ru/bustrack/cli/tracker/config"
	"github.com/daniil11ru/bustrack/cli/tracker/domain"
	"github.com/daniil11ru/bustrack/cli/tracker/hub"
	"github.com/daniil11ru/bustrack/cli/tracker/storage"
	"github.com/daniil11ru/bustrack/cli/tracker/ws"

	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	configFilePath := ""
	flag.StringVar(&configFilePath, "c", "", "путь до конфигурационного файла")
	flag.Parse()

	cfg, err := getConfig(configFilePath)
	if err != nil {
		log.Fatalf("Не удалось получить конфиг: %v", err)
		return
	}

	configureLogging(cfg)

	positions := cache.New()
	router := hub.New(positions)
	tokens := auth.NewTokenService(cfg.TokenSecret, cfg.GetTokenTTL())

	var sinks storage.Saver
	if len(cfg.Store) > 0 {
		repository := storage.NewRepository()
		if err := repository.LoadStorages(cfg.Store); err != nil {
			log.Fatalf("Не удалось загрузить хранилища: %v", err)
			return
		}
		log.Infof("Подключено внешних хранилищ: %d", len(cfg.Store))

		asyncRepository := storage.NewAsyncRepository(repository, 256, 0)
		defer asyncRepository.Close()
		sinks = asyncRepository
	}

	report := domain.NewReportPosition(positions, router, sinks)
	last := &domain.GetLastPosition{Positions: positions}

	driverGateway := &ws.DriverGateway{
		Tokens:  tokens,
		Report:  report,
		Router:  router,
		ConnTTL: cfg.GetConnTTL(),
	}
	passengerGateway := &ws.PassengerGateway{Router: router}

	controller := api.NewController(
		api.NewHandler(tokens, report, last),
		func(c *gin.Context) { driverGateway.Handle(c.Writer, c.Request) },
		func(c *gin.Context) { passengerGateway.Handle(c.Writer, c.Request) },
	)

	addr := cfg.GetListenAddress()
	log.Infof("Запуск сервера на %s", addr)
	if err := controller.Run(addr); err != nil {
		log.Fatalf("Не удалось запустить сервер: %v", err)
	}
}

func getConfig(configFilePath string) (config.Settings, error) {
	var c config.Settings
	var err error

	if configFilePath == "" {
		return c, errors.New("не задан путь до конфига")
	}

	c, err = config.New(configFilePath)
	if err != nil {
		return c, fmt.Errorf("ошибка парсинга конфига: %v", err)
	}

	return c, nil
}

func configureLogging(cfg config.Settings) {
	log.SetLevel(cfg.GetLogLevel())

	consoleFmt := &log.TextFormatter{ForceColors: true, FullTimestamp: false}
	log.SetFormatter(consoleFmt)
	log.SetOutput(os.Stdout)

	if cfg.LogFilePath != "" {
		logDir := filepath.Dir(cfg.LogFilePath)
		if _, err := os.Stat(logDir); os.IsNotExist(err) {
			if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
				log.Fatalf("Не получилось создать директорию для логов: %v", err)
			}
		}

		lumberjackLogger := &lumberjack.Logger{
			Filename:   cfg.LogFilePath,
			MaxSize:    100,
			MaxBackups: 366,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}

		fileFmt := &log.TextFormatter{DisableColors: true, FullTimestamp: true}
		hook := lfshook.NewHook(lfshook.WriterMap{
			log.PanicLevel: lumberjackLogger,
			log.FatalLevel: lumberjackLogger,
			log.ErrorLevel: lumberjackLogger,
			log.WarnLevel:  lumberjackLogger,
			log.InfoLevel:  lumberjackLogger,
			log.DebugLevel: lumberjackLogger,
			log.TraceLevel: lumberjackLogger,
		}, fileFmt)

		log.AddHook(hook)
	}
}
