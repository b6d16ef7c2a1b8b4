package zaplog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/exp/slices"

	"github.com/AnishMulay/inodestore/internal/log_service"
)

// ZapLogService adapts a zap logger to the LogService interface.
type ZapLogService struct {
	logger *zap.Logger
	nodeID string
}

func NewZapLogService(logger *zap.Logger, nodeID string) *ZapLogService {
	return &ZapLogService{logger: logger, nodeID: nodeID}
}

// NewConsole builds a human-readable logger on stderr filtered at level.
func NewConsole(nodeID string, level string) (*ZapLogService, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(toZapLevel(level))
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZapLogService(logger, nodeID), nil
}

func NewNop() *ZapLogService {
	return NewZapLogService(zap.NewNop(), "")
}

func toZapLevel(level string) zapcore.Level {
	switch log_service.GetLevelValue(level) {
	case log_service.InfoLevelValue:
		return zapcore.InfoLevel
	case log_service.WarnLevelValue:
		return zapcore.WarnLevel
	case log_service.ErrorLevelValue:
		return zapcore.ErrorLevel
	default:
		return zapcore.DebugLevel
	}
}

func (zs *ZapLogService) fields(event log_service.LogEvent) []zap.Field {
	keys := make([]string, 0, len(event.Metadata))
	for k := range event.Metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	fields := make([]zap.Field, 0, len(keys)+2)
	if zs.nodeID != "" {
		fields = append(fields, zap.String("node", zs.nodeID))
	}
	if !event.Timestamp.IsZero() {
		fields = append(fields, zap.Time("eventTime", event.Timestamp))
	}
	for _, k := range keys {
		fields = append(fields, zap.Any(k, event.Metadata[k]))
	}
	return fields
}

func (zs *ZapLogService) Debug(event log_service.LogEvent) {
	zs.logger.Debug(event.Message, zs.fields(event)...)
}

func (zs *ZapLogService) Info(event log_service.LogEvent) {
	zs.logger.Info(event.Message, zs.fields(event)...)
}

func (zs *ZapLogService) Warn(event log_service.LogEvent) {
	zs.logger.Warn(event.Message, zs.fields(event)...)
}

func (zs *ZapLogService) Error(event log_service.LogEvent) {
	zs.logger.Error(event.Message, zs.fields(event)...)
}

// Sync flushes buffered entries.
func (zs *ZapLogService) Sync() error {
	return zs.logger.Sync()
}

var _ log_service.LogService = (*ZapLogService)(nil)
