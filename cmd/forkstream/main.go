package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/icecave/forkstream/cmd"
	"github.com/icecave/forkstream/forked"
	"github.com/icecave/forkstream/server"
)

func main() {
	config := cmd.GetConfigFromEnvironment()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	svr := &server.Server{
		Factory:        captureFactory(config, logger),
		Logger:         logger,
		BufferSize:     config.BufferSize,
		ProxyProtocol:  config.ProxyProtocol,
		MaxConnections: config.MaxConnections,
	}

	if err := svr.Start(config.Port); err != nil {
		logger.Fatalln(err)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	<-signals

	if err := svr.Shutdown(); err != nil {
		logger.Fatalln(err)
	}
}

// captureFactory selects the capture backend: Redis when an address is
// configured, files otherwise.
func captureFactory(config *cmd.Config, logger *log.Logger) forked.Factory {
	if config.Capture.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     config.Capture.RedisAddress,
			Password: config.Capture.RedisPassword,
		})

		return &forked.RedisFactory{
			Logger:    logger,
			Client:    rdb,
			KeyParam:  config.Capture.KeyParam,
			KeyPrefix: config.Capture.RedisPrefix,
			Expire:    config.Capture.RedisExpire,
		}
	}

	return &forked.FileFactory{
		BasePath: config.Capture.Path,
		KeyParam: config.Capture.KeyParam,
		Logger:   logger,
	}
}
