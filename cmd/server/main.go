package main

import (
	_ "github.com/karelhala/poker-planning-hackathon-2025/docs"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/bootstrap"
)

// @title Planning Poker Channel API
// @version 1.0.0
// @description Room channel, issue tracker proxy and profile preferences for planning poker clients

// @BasePath /v1

func main() {
	bootstrap.Run()
}
