package server

import (
	"time"

	"github.com/pinewilt/kgcurate/backend/internal/util"
)

const (
	StoreAdapterPostgres = "postgres"
	StoreAdapterSQLite   = "sqlite"
	StoreAdapterMemory   = "memory"

	defaultChatURL    = "https://api.moonshot.cn/v1"
	defaultChatModel  = "moonshot-v1-8k"
	defaultImageModel = "moonshot-v1-8k-vision-preview"
	defaultLocalModel = "llava"
)

// Config is read once at start-up.
type Config struct {
	Port        string
	CORSOrigins []string
	BodyLimit   string

	StoreAdapter   string
	DatabaseURL    string
	SQLitePath     string
	MigrationsPath string
	SeedOnStart    bool

	Word2VecPath         string
	FallbackWord2VecPath string
	PGVectorTable        string

	AIAdapter   string
	ChatURL     string
	ChatKey     string
	ChatModel   string
	AITimeout   time.Duration
	Parallelism int

	VisionAdapter string
	ImageURL      string
	ImageKey      string
	ImageModel    string

	MetricsAddr string
}

// LoadConfig reads Config from the environment.
func LoadConfig() Config {
	chatURL := util.GetEnvString("AI_CHAT_URL", defaultChatURL)
	chatKey := util.GetEnvFirst("AI_CHAT_KEY", "MOONSHOT_API_KEY")

	visionAdapter := util.GetEnvString("VISION_ADAPTER", "cloud")
	imageModel := defaultImageModel
	if visionAdapter == "local" {
		imageModel = defaultLocalModel
	}

	return Config{
		Port:        util.GetEnvString("PORT", "8000"),
		CORSOrigins: util.GetEnvList("CORS_ORIGINS", []string{"*"}),
		BodyLimit:   util.GetEnvString("BODY_LIMIT", "25M"),

		StoreAdapter:   util.GetEnvString("STORE_ADAPTER", StoreAdapterPostgres),
		DatabaseURL:    util.GetEnv("DATABASE_URL"),
		SQLitePath:     util.GetEnvString("SQLITE_PATH", "kgcurate.db"),
		MigrationsPath: util.GetEnvString("MIGRATIONS_PATH", "file://migrations"),
		SeedOnStart:    util.GetEnvBool("SEED_ON_START", true),

		Word2VecPath:         util.GetEnv("WORD2VEC_MODEL_PATH"),
		FallbackWord2VecPath: util.GetEnv("FALLBACK_WORD2VEC_MODEL_PATH"),
		PGVectorTable:        util.GetEnv("EMBED_PGVECTOR_TABLE"),

		AIAdapter:   util.GetEnvString("AI_ADAPTER", "openai"),
		ChatURL:     chatURL,
		ChatKey:     chatKey,
		ChatModel:   util.GetEnvString("AI_CHAT_MODEL", defaultChatModel),
		AITimeout:   util.GetEnvSeconds("AI_TIMEOUT_SECONDS", 20),
		Parallelism: int(util.GetEnvNumeric("AI_PARALLEL_REQ", 4)),

		VisionAdapter: visionAdapter,
		ImageURL:      util.GetEnvString("AI_IMAGE_URL", chatURL),
		ImageKey:      util.GetEnvString("AI_IMAGE_KEY", chatKey),
		ImageModel:    util.GetEnvString("AI_IMAGE_MODEL", imageModel),

		MetricsAddr: util.GetEnv("METRICS_ADDR"),
	}
}
