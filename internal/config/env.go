package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const (
	EnvUser     = "RIN_NAME"
	EnvPassword = "RIN_PASS"
	EnvJDHome   = "JD2_HOME"
)

type Env struct {
	User     string
	Password string
	JDHome   string
}

// LoadEnv reads the given dotenv files (default .env) into the process
// environment without overriding existing variables. Missing files are ignored.
func LoadEnv(files ...string) Env {
	_ = godotenv.Load(files...)

	return Env{
		User:     os.Getenv(EnvUser),
		Password: os.Getenv(EnvPassword),
		JDHome:   os.Getenv(EnvJDHome),
	}
}

func (e Env) Validate() error {
	if e.User == "" {
		return fmt.Errorf("%s is not set, specify your username in the .env file", EnvUser)
	}

	if e.Password == "" {
		return fmt.Errorf("%s is not set, specify your password in the .env file", EnvPassword)
	}

	return nil
}
