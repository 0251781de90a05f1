package container

import (
	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/buddybloom/buddybloom/config"
	"github.com/buddybloom/buddybloom/internal/domain/repository"
	"github.com/buddybloom/buddybloom/pkg/helpers"
)

// app-level container to share constructed components across the binaries.
// Each cmd constructs its infra once at startup and registers it here; the
// store handle in particular is acquired at process start and released at
// shutdown, never re-dialed per call.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	graphStore  repository.GraphStore
	redisClient *redis.Client
	gcsClient   *storage.Client

	rabbitPub *helpers.RabbitPublisher
	esClient  *elasticsearch.Client
)

func SetConfig(c *config.Config)            { cfg = c }
func GetConfig() *config.Config             { return cfg }
func SetLogger(l *logrus.Logger)            { logger = l }
func GetLogger() *logrus.Logger             { return logger }
func SetGraphStore(s repository.GraphStore) { graphStore = s }
func GetGraphStore() repository.GraphStore  { return graphStore }
func SetRedis(r *redis.Client)              { redisClient = r }
func GetRedis() *redis.Client               { return redisClient }
func SetGCS(s *storage.Client)              { gcsClient = s }
func GetGCS() *storage.Client               { return gcsClient }

func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
func SetES(c *elasticsearch.Client)           { esClient = c }
func GetES() *elasticsearch.Client            { return esClient }
