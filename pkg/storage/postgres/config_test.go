package postgres

import (
	"strings"
	"testing"
)

func TestConfig_IsValid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{
			name: "valid config",
			cfg: Config{
				User:     "user",
				Password: "password",
				Host:     "localhost",
				Port:     "5432",
				DBName:   "yatube",
			},
			want: true,
		},
		{
			name: "empty config",
			cfg:  Config{},
			want: false,
		},
		{
			name: "config with empty DBName",
			cfg: Config{
				User:     "user",
				Password: "password",
				Host:     "localhost",
				Port:     "5432",
				DBName:   "",
			},
			want: false,
		},
		{
			name: "config with empty password",
			cfg: Config{
				User:   "user",
				Host:   "localhost",
				Port:   "5432",
				DBName: "yatube",
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.IsValid(); got != tt.want {
				t.Errorf("Config.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_StringMasksPassword(t *testing.T) {
	cfg := Config{
		User:     "user",
		Password: "secret",
		Host:     "localhost",
		Port:     "5432",
		DBName:   "yatube",
	}

	s := cfg.String()
	if strings.Contains(s, "secret") {
		t.Errorf("Config.String() leaks the password: %s", s)
	}
}
