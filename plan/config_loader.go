package plan

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration
type Config struct {
	Room     RoomConfig     `yaml:"room"`
	Canvas   Surface        `yaml:"canvas"`
	HTTP     HTTPConfig     `yaml:"http"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Designer DesignerConfig `yaml:"designer"`
	Log      LogConfig      `yaml:"log"`
}

// HTTPConfig configures the HTTP service
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// MQTTConfig configures layout publishing. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker        string `yaml:"broker"`
	ClientID      string `yaml:"clientId"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	PublishPrefix string `yaml:"publishPrefix"`
}

// DesignerConfig configures the Gemini design collaborator
type DesignerConfig struct {
	APIKey      string        `yaml:"apiKey"`
	BaseURL     string        `yaml:"baseUrl"`
	ImageModel  string        `yaml:"imageModel"`
	AdviceModel string        `yaml:"adviceModel"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"maxRetries"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() Config {
	return Config{
		Room:   DefaultRoomConfig(),
		Canvas: DefaultSurface(),
		HTTP:   HTTPConfig{Port: 4040},
		MQTT: MQTTConfig{
			ClientID:      "roomplan",
			PublishPrefix: "roomplan",
		},
		Designer: DesignerConfig{
			BaseURL:     DefaultGeminiBaseURL,
			ImageModel:  DefaultImageModel,
			AdviceModel: DefaultAdviceModel,
			Timeout:     DefaultGenerateTimeout,
			MaxRetries:  DefaultMaxRetries,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig loads the configuration from a YAML file. Keys missing from the
// file keep their defaults; environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	config.ApplyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// ApplyEnv overrides secrets and connection settings from the environment
func (c *Config) ApplyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Designer.APIKey = v
	} else if v := os.Getenv("API_KEY"); v != "" {
		c.Designer.APIKey = v
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
	}
	if v := os.Getenv("MQTT_CLIENT_ID"); v != "" {
		c.MQTT.ClientID = v
	}
	if v := os.Getenv("MQTT_USERNAME"); v != "" {
		c.MQTT.Username = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		c.MQTT.Password = v
	}
	if v := os.Getenv("MQTT_PUBLISH_PREFIX"); v != "" {
		c.MQTT.PublishPrefix = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HTTP.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the room, canvas and service settings
func (c *Config) Validate() error {
	if err := c.Room.Validate(); err != nil {
		return fmt.Errorf("room: %w", err)
	}
	if _, err := NewViewport(c.Room, c.Canvas); err != nil {
		return fmt.Errorf("canvas: %w", err)
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range: %w", c.HTTP.Port, ErrInvalidConfiguration)
	}
	if c.MQTT.Broker != "" && c.MQTT.PublishPrefix == "" {
		return fmt.Errorf("mqtt.publishPrefix is required when a broker is set: %w", ErrInvalidConfiguration)
	}
	if c.Designer.Timeout < 0 {
		return fmt.Errorf("designer.timeout %v: %w", c.Designer.Timeout, ErrInvalidConfiguration)
	}
	return nil
}

// Layout is a saved furniture arrangement
type Layout struct {
	Room      *RoomConfig     `yaml:"room,omitempty"`
	Furniture []FurnitureItem `yaml:"furniture"`
}

// LoadLayout reads a furniture arrangement from a YAML (or JSON) file. Items
// are checked and completed with NormalizeFurniture for the layout's room, or
// cfg when the file has none.
func LoadLayout(path string, cfg RoomConfig) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout file: %w", err)
	}

	var layout Layout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("parsing layout YAML: %w", err)
	}
	if layout.Room != nil {
		if err := layout.Room.Validate(); err != nil {
			return nil, fmt.Errorf("layout room: %w", err)
		}
		cfg = *layout.Room
	}

	items, err := NormalizeFurniture(layout.Furniture, cfg)
	if err != nil {
		return nil, err
	}
	layout.Furniture = items
	return &layout, nil
}
