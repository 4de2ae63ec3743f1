package main

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("test-client", pflag.ExitOnError)
	addr := flags.String("url", "ws://localhost:8080/ws", "адрес WebSocket редактора")
	count := flags.Int("messages", 12, "сколько сообщений прочитать")
	_ = flags.Parse(os.Args[1:])

	log.Printf("Подключение к %s", *addr)
	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		log.Fatalf("Ошибка подключения: %v", err)
	}
	defer conn.Close()
	log.Printf("Успешно подключен")

	// Пинг, коробка, изменение поворота и отмена
	commands := []map[string]interface{}{
		{"type": "ping", "clientTime": float64(time.Now().UnixMilli())},
		{"type": "add_object", "kind": "box"},
		{"type": "apply_transform", "rotationDeg": map[string]float64{"x": 0, "y": 45, "z": 0}},
		{"type": "undo"},
	}
	for _, cmd := range commands {
		if err := conn.WriteJSON(cmd); err != nil {
			log.Fatalf("Ошибка отправки %v: %v", cmd["type"], err)
		}
	}

	for i := 0; i < *count; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("Ошибка чтения сообщения: %v", err)
			break
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Ошибка разбора сообщения: %v", err)
			continue
		}

		switch msg["type"] {
		case "info":
			log.Printf("INFO: %v", msg["message"])
		case "pong":
			log.Printf("PONG: server_time=%v", msg["server_time"])
		case "scene":
			scene, _ := msg["scene"].(map[string]interface{})
			furniture, _ := scene["furniture"].([]interface{})
			log.Printf("SCENE: мебель=%d, объем=%v", len(furniture), scene["volume"])
		case "history":
			h, _ := msg["history"].(map[string]interface{})
			log.Printf("HISTORY: %v (%v)", h["label"], h["current"])
		case "selection":
			info, _ := msg["info"].(map[string]interface{})
			log.Printf("SELECTION: %v %v", info["name"], info["type"])
		case "ack":
			log.Printf("ACK: %v id=%v", msg["cmd"], msg["id"])
		case "error":
			log.Printf("ERROR: %v: %v", msg["cmd"], msg["message"])
		default:
			log.Printf("Сообщение типа %v: %v", msg["type"], msg)
		}
	}

	log.Printf("Тест завершен")
}
