package storage

import (
	"context"
	"fmt"
	"strings"

	"cv-match-go/internal/config"
	"cv-match-go/internal/logger"
)

// Storage aggregates every storage dependency of the application. Components
// whose configuration is absent stay nil; callers must check before use.
type Storage struct {
	MinIO    *MinIO
	RabbitMQ *RabbitMQ
	MySQL    *MySQL
	Redis    *Redis
}

// NewStorage initializes each configured component. Individual failures are
// collected; the call only fails outright when nothing could be initialized.
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	s := &Storage{}
	var initErrors []string

	if cfg.MinIO.Endpoint != "" {
		minioStore, err := NewMinIO(&cfg.MinIO)
		if err != nil {
			logger.Warn().Err(err).Msg("minio initialization failed")
			initErrors = append(initErrors, fmt.Sprintf("minio: %v", err))
		} else {
			s.MinIO = minioStore
		}
	}

	if cfg.RabbitMQ.URL != "" {
		mq, err := NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			logger.Warn().Err(err).Msg("rabbitmq initialization failed")
			initErrors = append(initErrors, fmt.Sprintf("rabbitmq: %v", err))
		} else {
			s.RabbitMQ = mq
		}
	}

	if cfg.MySQL.Host != "" {
		db, err := NewMySQL(&cfg.MySQL)
		if err != nil {
			logger.Warn().Err(err).Msg("mysql initialization failed")
			initErrors = append(initErrors, fmt.Sprintf("mysql: %v", err))
		} else {
			s.MySQL = db
		}
	}

	if cfg.Redis.Address != "" {
		rdb, err := NewRedis(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("redis initialization failed")
			initErrors = append(initErrors, fmt.Sprintf("redis: %v", err))
		} else {
			s.Redis = rdb
		}
	}

	if s.MinIO == nil && s.RabbitMQ == nil && s.MySQL == nil && s.Redis == nil {
		return nil, fmt.Errorf("all storage components failed to initialize: %s", strings.Join(initErrors, "; "))
	}
	if len(initErrors) > 0 {
		logger.Warn().Str("failures", strings.Join(initErrors, "; ")).Msg("some storage components failed to initialize")
	}

	return s, nil
}

// Close closes every open connection.
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			logger.Error().Err(err).Msg("close rabbitmq")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Error().Err(err).Msg("close mysql")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}
	// MinIO's client needs no explicit close.
}
