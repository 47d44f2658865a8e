package util

import (
	_ "embed"
	"fmt"
	"gopkg.in/yaml.v3"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

const Name = "nn-instagram"
const ConfigFileName = "config.yaml"

//go:embed config_default.yaml
var embeddedConfig []byte

// GraphConf configures the remote media API. MaxPosts 0 fetches every page.
// TransferTimeoutSeconds bounds a whole media download.
type GraphConf struct {
	BaseURL                string `yaml:"baseUrl"`
	PageLimit              int    `yaml:"pageLimit"`
	MaxPosts               int    `yaml:"maxPosts"`
	MaxDownloadBytes       int64  `yaml:"maxDownloadBytes"`
	TimeoutSeconds         int    `yaml:"timeoutSeconds"`
	TransferTimeoutSeconds int    `yaml:"transferTimeoutSeconds"`
}

type StoreConf struct {
	Shop                   string `yaml:"shop"`
	ApiVersion             string `yaml:"apiVersion"`
	AccessToken            string `yaml:"accessToken"`
	PageSize               int    `yaml:"pageSize"`
	PostType               string `yaml:"postType"`
	ListType               string `yaml:"listType"`
	TimeoutSeconds         int    `yaml:"timeoutSeconds"`
	TransferTimeoutSeconds int    `yaml:"transferTimeoutSeconds"`
}

type SyncConf struct {
	Provider      string `yaml:"provider"`
	ListStrategy  string `yaml:"listStrategy"`
	DeleteRetries int    `yaml:"deleteRetries"`
}

type AppConfig struct {
	Conf struct {
		Host     string
		HttpPort int    `yaml:"httpPort"`
		ApiKey   string `yaml:"apiKey"`
		Database string `yaml:"database"`
		LogFile  string `yaml:"logFile"`
		Graph    GraphConf
		Store    StoreConf
		Sync     SyncConf
	}
}

// ReadConf reads config.yaml from the working directory or the user config
// directory, falling back to the embedded defaults.
func ReadConf() (*AppConfig, error) {
	return ReadConfFrom("")
}

// ReadConfFrom reads the given config file. An empty path resolves the default
// location. Environment variables override file values in both cases.
func ReadConfFrom(path string) (*AppConfig, error) {

	var buf []byte
	var err error

	if path != "" {
		buf, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		configPath := ResolveFilePath(ConfigFileName)
		buf, err = os.ReadFile(configPath)
		if err != nil {
			log.Printf("Config file not found at %s, using embedded defaults", configPath)
			buf = embeddedConfig

			configDir, dirErr := GetConfigDir()
			if dirErr == nil {
				userConfigPath := filepath.Join(configDir, ConfigFileName)
				writeErr := os.WriteFile(userConfigPath, embeddedConfig, 0600)
				if writeErr != nil {
					log.Printf("Warning: could not write default config to %s: %v", userConfigPath, writeErr)
				} else {
					log.Printf("Created default config file at %s", userConfigPath)
				}
			}
		}
	}

	c := &AppConfig{}
	if err := yaml.Unmarshal(embeddedConfig, c); err != nil {
		return nil, fmt.Errorf("in embedded config: %w", err)
	}
	if err := yaml.Unmarshal(buf, c); err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}

	applyEnv(c)
	return c, nil
}

func applyEnv(c *AppConfig) {
	setString(&c.Conf.Host, "NNIG_HOST")
	setInt(&c.Conf.HttpPort, "NNIG_HTTPPORT")
	setString(&c.Conf.ApiKey, "NNIG_APIKEY")
	setString(&c.Conf.Database, "NNIG_DATABASE")
	setString(&c.Conf.LogFile, "NNIG_LOGFILE")

	setString(&c.Conf.Graph.BaseURL, "NNIG_GRAPH_BASEURL")
	setInt(&c.Conf.Graph.MaxPosts, "NNIG_GRAPH_MAXPOSTS")

	setString(&c.Conf.Store.Shop, "NNIG_STORE_SHOP")
	setString(&c.Conf.Store.ApiVersion, "NNIG_STORE_APIVERSION")
	setString(&c.Conf.Store.AccessToken, "NNIG_STORE_TOKEN")

	setString(&c.Conf.Sync.Provider, "NNIG_SYNC_PROVIDER")
	setString(&c.Conf.Sync.ListStrategy, "NNIG_SYNC_LISTSTRATEGY")
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// setInt keeps the file value when the variable does not parse.
func setInt(dst *int, env string) {
	v := os.Getenv(env)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: ignoring %s=%q: %v", env, v, err)
		return
	}
	*dst = n
}
