// @title Cable Robot Service API
// @version 1.0.0
// @description API оператора кабельного робота: хоминг, состояние актуаторов, идентификация и публикация телеметрии в Kafka.
// @host localhost:8082
// @BasePath /api/v1
package main

import "github.com/iwtcode/cableRobot/internal/app"

func main() {
	// Создаем и запускаем новый экземпляр приложения fx
	app.New().Run()
}
