package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

/*
Bus movement simulator.

Util sends synthetic driver position reports to a tracker server,
either over REST or over the persistent driver websocket.

Usage:
  -server string
    	Tracker address, e.g. http://localhost:3000
  -token string
    	Driver token (require)
  -mode string
    	Transport: rest or socket (default "socket")
  -period duration
    	Interval between reports (default 3s)
  -lat float
    	Start latitude (default 28.6139)
  -lng float
    	Start longitude (default 77.2090)

Example

```
./simulator --server http://localhost:3000 --token $TOKEN --mode rest
```
*/

func main() {
	server := ""
	token := ""
	mode := ""
	var period time.Duration
	lat := 0.0
	lng := 0.0

	flag.StringVar(&server, "server", "http://localhost:3000", "Адрес сервера")
	flag.StringVar(&token, "token", "", "Токен водителя (обязательно)")
	flag.StringVar(&mode, "mode", "socket", "Транспорт: rest или socket")
	flag.DurationVar(&period, "period", 3*time.Second, "Период отправки отчетов")
	flag.Float64Var(&lat, "lat", 28.6139, "Начальная широта")
	flag.Float64Var(&lng, "lng", 77.2090, "Начальная долгота")
	flag.Parse()

	if token == "" {
		log.Fatal("Не задан токен водителя")
	}

	walk := &randomWalk{lat: lat, lng: lng}

	switch mode {
	case "rest":
		runRest(server, token, period, walk)
	case "socket":
		runSocket(server, token, period, walk)
	default:
		log.Fatalf("Неизвестный режим: %s", mode)
	}
}

// randomWalk сдвигает позицию на небольшой случайный шаг.
type randomWalk struct {
	lat float64
	lng float64
}

func (w *randomWalk) next() (float64, float64) {
	w.lat += (rand.Float64() - 0.5) * 0.001
	w.lng += (rand.Float64() - 0.5) * 0.001
	return w.lat, w.lng
}

func runRest(server, token string, period time.Duration, walk *randomWalk) {
	client := &http.Client{Timeout: 10 * time.Second}

	for {
		lat, lng := walk.next()
		body, err := json.Marshal(map[string]interface{}{
			"lat":       lat,
			"lng":       lng,
			"timestamp": time.Now().UnixMilli(),
		})
		if err != nil {
			log.Fatalf("Не удалось сериализовать отчет: %v", err)
		}

		req, err := http.NewRequest(http.MethodPost, server+"/api/driver/update", bytes.NewReader(body))
		if err != nil {
			log.Fatalf("Не удалось создать запрос: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := client.Do(req)
		if err != nil {
			log.Errorf("Ошибка отправки отчета: %v", err)
		} else {
			resp.Body.Close()
			log.Infof("Отправлено %f %f: %s", lat, lng, resp.Status)
		}

		time.Sleep(period)
	}
}

func runSocket(server, token string, period time.Duration, walk *randomWalk) {
	wsURL := "ws" + strings.TrimPrefix(server, "http") + "/ws/driver?token=" + url.QueryEscape(token)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("Не удалось подключиться к %s: %v", wsURL, err)
	}
	defer conn.Close()

	log.Info("Соединение водителя установлено")

	for {
		lat, lng := walk.next()
		msg := map[string]interface{}{
			"event": "position",
			"lat":   lat,
			"lng":   lng,
			"ts":    time.Now().UnixMilli(),
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Fatalf("Ошибка отправки отчета: %v", err)
		}
		log.Info(fmt.Sprintf("Отправлено %f %f", lat, lng))

		time.Sleep(period)
	}
}
