package actorutil

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/berfenger/modbus2mqtt/internal/core/domain"
	"github.com/berfenger/modbus2mqtt/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		return SlogLogger(logger)
	}))
}

// SlogLogger renders slog records through the zap logger, for libraries
// that log with slog.
func SlogLogger(logger *zap.Logger) *slog.Logger {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.DateTime,
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand maps a command received on a component topic
// to a domain command.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) (domain.Command, error) {
	var cmdType domain.CommandType
	switch cmd.Command {
	case "switch":
		cmdType = domain.COMMAND_TYPE_SWITCH
	case "number":
		cmdType = domain.COMMAND_TYPE_NUMBER
	case "select":
		cmdType = domain.COMMAND_TYPE_SELECT
	default:
		return domain.Command{}, fmt.Errorf("%w: %s", domain.ErrUnknownCommand, cmd.Command)
	}
	return domain.Command{
		Type:     cmdType,
		TargetId: cmd.DeviceId,
		Payload:  cmd.Payload,
	}, nil
}
