// Command server runs the API as a plain HTTP server for local development,
// bridging fiber requests into the same router the Lambda uses.
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/common-nighthawk/go-figure"
	"github.com/gofiber/fiber/v3"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/Gaius-Lex/CV-voting/internal/app"
)

const appName = "CV Voting"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.NewApp(ctx)
	defer application.Close()
	cfg := application.Config()
	logger := application.Logger()

	displayAppname(appName)

	server := fiber.New(fiber.Config{
		AppName:      appName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // grading waits on the LLM
	})
	server.Use(recover.New())
	server.Use(fiberlogger.New())
	server.All("/*", bridge(application))

	go application.Sweeper().Run(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	logger.Info().Str("port", cfg.Port).Bool("dev_mode", cfg.DevMode).Msg("starting local server")
	if err := server.Listen(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

// bridge converts a fiber request into an API Gateway proxy event and writes
// the router's response back.
func bridge(application *app.App) fiber.Handler {
	return func(c fiber.Ctx) error {
		headers := make(map[string]string)
		for k, v := range c.GetReqHeaders() {
			if len(v) > 0 {
				headers[k] = v[0]
			}
		}

		req := events.APIGatewayProxyRequest{
			Path:                  c.Path(),
			HTTPMethod:            c.Method(),
			Headers:               headers,
			QueryStringParameters: c.Queries(),
			Body:                  string(c.Body()),
		}

		resp, err := application.HandleRequest(c.Context(), req)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		}

		for k, v := range resp.Headers {
			c.Set(k, v)
		}
		body := []byte(resp.Body)
		if resp.IsBase64Encoded {
			if body, err = base64.StdEncoding.DecodeString(resp.Body); err != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("invalid response encoding")
			}
		}
		return c.Status(resp.StatusCode).Send(body)
	}
}

func displayAppname(name string) {
	myFigure := figure.NewFigure(name, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
