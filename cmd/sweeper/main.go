// Command sweeper removes expired sessions. It runs as a Lambda on an
// EventBridge schedule.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/Gaius-Lex/CV-voting/internal/app"
)

type sweepResult struct {
	Removed int  `json:"removed"`
	Ran     bool `json:"ran"`
}

func main() {
	application := app.NewApp(context.Background())
	logger := application.Logger()

	lambda.Start(func(ctx context.Context, ev events.CloudWatchEvent) (sweepResult, error) {
		removed, ran, err := application.Sweeper().SweepOnce(ctx)
		if err != nil {
			logger.Error().Err(err).Str("event_id", ev.ID).Msg("session sweep failed")
			return sweepResult{}, err
		}
		if !ran {
			logger.Info().Str("event_id", ev.ID).Msg("sweep already running elsewhere, skipped")
		}
		return sweepResult{Removed: removed, Ran: ran}, nil
	})
}
