package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/20407002036/LughaBridge/adapters/audio"
	"github.com/20407002036/LughaBridge/adapters/rooms"
	"github.com/20407002036/LughaBridge/domain/entities"
	"github.com/20407002036/LughaBridge/domain/repositories"
	"github.com/20407002036/LughaBridge/internal/config"
	"github.com/20407002036/LughaBridge/usecase"
)

func main() {
	createRoom := flag.Bool("create", false, "create a new room and join it")
	joinCode := flag.String("join", "", "join an existing room by code")
	sourceLang := flag.String("source", "Kikuyu", "source language for a new room")
	targetLang := flag.String("target", "English", "target language for a new room")
	health := flag.Bool("health", false, "check room service health and exit")
	demo := flag.Bool("demo", false, "replay the scripted demo conversation offline")
	auto := flag.Bool("auto", false, "with -demo, replay the whole script without prompting")
	flag.Parse()

	godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()

	if *demo {
		runDemo(*auto, logger)
		return
	}

	client := rooms.NewClient(rooms.ClientConfig{
		APIBaseURL: cfg.Rooms.APIBaseURL,
		WSBaseURL:  cfg.Rooms.WSBaseURL,
		Timeout:    cfg.Rooms.HTTPTimeout,
	}, logger)

	ctx := context.Background()

	if *health {
		status, err := client.Health(ctx)
		if err != nil {
			logger.Fatal("Room service unreachable", zap.Error(err))
		}
		fmt.Printf("status: %s, demo mode: %v\n", status.Status, status.DemoMode)
		return
	}

	code := strings.TrimSpace(*joinCode)
	if *createRoom {
		source, ok := entities.ParseLanguage(*sourceLang)
		if !ok {
			logger.Fatal("Unknown source language", zap.String("language", *sourceLang))
		}
		target, ok := entities.ParseLanguage(*targetLang)
		if !ok {
			logger.Fatal("Unknown target language", zap.String("language", *targetLang))
		}
		created, err := client.CreateRoom(ctx, source, target)
		if err != nil {
			logger.Fatal("Failed to create room", zap.Error(err))
		}
		fmt.Printf("room created: %s\n", created.RoomCode)
		code = created.RoomCode
	}
	if code == "" {
		fmt.Fprintln(os.Stderr, "usage: lughabridge -join CODE | -create | -health | -demo")
		os.Exit(2)
	}

	recorder := audio.NewFFmpegRecorder(audio.Config{
		Command:     cfg.Audio.RecorderCommand,
		InputFormat: cfg.Audio.InputFormat,
		InputDevice: cfg.Audio.InputDevice,
		SampleRate:  cfg.Audio.SampleRate,
		Channels:    cfg.Audio.Channels,
	}, logger)

	streams := func(roomCode string) repositories.RoomStream {
		return rooms.NewSession(roomCode, client.SessionURL(roomCode), rooms.SessionConfig{
			ReconnectDelay:       cfg.Stream.ReconnectDelay,
			MaxReconnectAttempts: cfg.Stream.MaxReconnectAttempts,
		}, logger)
	}

	service := usecase.NewConversationService(client, streams, recorder, usecase.ConversationConfig{
		SettleDelay: cfg.Conversation.SettleDelay,
	}, logger)

	service.OnMessage(func(msg entities.ChatMessage) {
		fmt.Printf("[%s] %s\n", msg.Sender, msg.OriginalText)
		if msg.TranslatedText != "" {
			fmt.Printf("    -> %s\n", msg.TranslatedText)
		}
	})
	service.OnStatusChange(func(status entities.ConnectionStatus) {
		fmt.Printf("connection: %s\n", status)
	})
	service.Conversation().OnChange(func(state entities.ConversationState) {
		fmt.Printf("state: %s\n", state)
	})

	if err := service.Join(ctx, code); err != nil {
		logger.Error("Join failed, showing fallback transcript", zap.Error(err))
		for _, msg := range service.Messages() {
			fmt.Printf("[%s] %s\n    -> %s\n", msg.Sender, msg.OriginalText, msg.TranslatedText)
		}
		os.Exit(1)
	}
	defer service.Leave()

	room, _ := service.Room()
	fmt.Printf("joined room %s (%s -> %s)\n", room.Code, room.SourceLanguage, room.TargetLanguage)
	fmt.Println("enter: toggle microphone | /t <text>: send text | /q: quit")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-quit:
			fmt.Println("\nleaving room")
			return
		case <-keepalive.C:
			service.Ping()
		case line, ok := <-lines:
			if !ok {
				return
			}
			switch {
			case line == "/q":
				return
			case strings.HasPrefix(line, "/t "):
				text := strings.TrimSpace(strings.TrimPrefix(line, "/t "))
				if text == "" {
					continue
				}
				service.SetTyping(true)
				if err := service.SendText(text); err != nil {
					logger.Error("Failed to send text", zap.Error(err))
				}
				service.SetTyping(false)
			case line == "":
				service.PressMic(ctx)
			default:
				fmt.Println("enter: toggle microphone | /t <text>: send text | /q: quit")
			}
		}
	}
}

// runDemo replays the scripted conversation against the real state machine,
// no room service required.
func runDemo(auto bool, logger *zap.Logger) {
	conv := entities.NewConversation()
	conv.OnChange(func(state entities.ConversationState) {
		fmt.Printf("state: %s\n", state)
	})

	sink := func(msg entities.ChatMessage) {
		fmt.Printf("[%s] %s\n    -> %s\n", msg.Sender, msg.OriginalText, msg.TranslatedText)
	}
	player := usecase.NewDemoPlayer(conv, usecase.DefaultTimings(), sink, logger)

	if auto {
		player.AutoPlay()
		return
	}

	fmt.Println("enter: play next exchange | /q: quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "/q" {
			player.Stop()
			return
		}
		if !player.PlayOnce() {
			fmt.Println("a cycle is already playing")
		}
	}
}
