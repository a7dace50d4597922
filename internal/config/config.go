package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	AWSRegion        string
	SQSEventQueueURL string
	IoTMQTTEndpoint  string
	IoTTopicPrefix   string

	RedisAddr     string // empty disables the schedule cache
	RedisPassword string
	RedisDB       int

	JWTSecret          string
	JWTExpirationHours time.Duration

	LotName string

	// Facility wiring. One camera and printer per entry lane, one barrier
	// facility per physical gate.
	EntryCameraID  string
	EntryPrinterID string
	EntryGateID    string
	ExitGateID     string

	// Hardware coordination knobs.
	AckWindow        time.Duration
	CaptureTimeout   time.Duration
	SlotWaitTimeout  time.Duration
	HardwareRetries  int
	RetryBackoff     time.Duration
	FailureThreshold int
	VerifyPollDelay  time.Duration

	// Sessions stuck mid-transition longer than this are swept.
	StuckSessionTimeout time.Duration
	SweepInterval       time.Duration
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))

	ackWindowMs, _ := strconv.Atoi(getEnv("HW_ACK_WINDOW_MS", "1000"))
	captureTimeoutMs, _ := strconv.Atoi(getEnv("HW_CAPTURE_TIMEOUT_MS", "5000"))
	slotWaitMs, _ := strconv.Atoi(getEnv("HW_SLOT_WAIT_MS", "10000"))
	retries, _ := strconv.Atoi(getEnv("HW_RETRIES", "2"))
	backoffMs, _ := strconv.Atoi(getEnv("HW_RETRY_BACKOFF_MS", "500"))
	failThreshold, _ := strconv.Atoi(getEnv("HW_FAILURE_THRESHOLD", "3"))
	verifyPollMs, _ := strconv.Atoi(getEnv("HW_VERIFY_POLL_DELAY_MS", "2000"))

	stuckMin, _ := strconv.Atoi(getEnv("STUCK_SESSION_TIMEOUT_MIN", "15"))
	sweepMin, _ := strconv.Atoi(getEnv("SWEEP_INTERVAL_MIN", "5"))

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "parkir"),
		DBPassword: getEnv("DB_PASSWORD", "parkir"),
		DBName:     getEnv("DB_NAME", "parkir_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		AWSRegion:        getEnv("AWS_REGION", "ap-southeast-1"),
		SQSEventQueueURL: getEnv("SQS_EVENT_QUEUE_URL", ""),
		IoTMQTTEndpoint:  getEnv("IOT_MQTT_ENDPOINT", ""),
		IoTTopicPrefix:   getEnv("IOT_TOPIC_PREFIX", "parkir"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,

		JWTSecret:          getEnv("JWT_SECRET", "change-me-before-deploying"),
		JWTExpirationHours: time.Duration(jwtExpHours) * time.Hour,

		LotName: getEnv("LOT_NAME", "PARKIR LINUX PARK"),

		EntryCameraID:  getEnv("ENTRY_CAMERA_ID", "camera-entry"),
		EntryPrinterID: getEnv("ENTRY_PRINTER_ID", "printer-entry"),
		EntryGateID:    getEnv("ENTRY_GATE_ID", "gate-entry"),
		ExitGateID:     getEnv("EXIT_GATE_ID", "gate-exit"),

		AckWindow:        time.Duration(ackWindowMs) * time.Millisecond,
		CaptureTimeout:   time.Duration(captureTimeoutMs) * time.Millisecond,
		SlotWaitTimeout:  time.Duration(slotWaitMs) * time.Millisecond,
		HardwareRetries:  retries,
		RetryBackoff:     time.Duration(backoffMs) * time.Millisecond,
		FailureThreshold: failThreshold,
		VerifyPollDelay:  time.Duration(verifyPollMs) * time.Millisecond,

		StuckSessionTimeout: time.Duration(stuckMin) * time.Minute,
		SweepInterval:       time.Duration(sweepMin) * time.Minute,
	}
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
