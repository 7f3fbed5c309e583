package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv preloads variables from the given files into the process
// environment. Missing files are skipped and variables that are already
// set win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// FromEnv layers APPTCAL_* variables over base.
func FromEnv(base Config) Config {
	cfg := base
	if v, ok := getEnvString("APPTCAL_DATABASE"); ok {
		cfg.DatabasePath = v
	}
	if v, ok := getEnvString("APPTCAL_TIMEZONE"); ok {
		cfg.Timezone = v
	}
	if v, ok := getEnvString("APPTCAL_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := getEnvString("APPTCAL_LOG_FILE"); ok {
		cfg.LogFile = v
	}
	if v, ok := getEnvString("APPTCAL_VIEWER_ID"); ok {
		cfg.Viewer.ID = v
	}
	if v, ok := getEnvString("APPTCAL_VIEWER_EMAIL"); ok {
		cfg.Viewer.Email = v
	}
	if v, ok := getEnvString("APPTCAL_VIEWER_ROLE"); ok {
		cfg.Viewer.Role = v
	}
	if v, ok := getEnvString("APPTCAL_VIEWER_DEPARTMENT"); ok {
		cfg.Viewer.Department = v
	}
	if v, ok := getEnvString("APPTCAL_PRIVILEGED_ROLES"); ok {
		cfg.PrivilegedRoles = splitList(v)
	}
	if v, ok := getEnvString("APPTCAL_ALL_ACCESS_DEPARTMENT"); ok {
		cfg.AllAccessDepartment = v
	}
	if v, ok := getEnvInt("APPTCAL_DEBOUNCE_MS"); ok && v > 0 {
		cfg.DebounceMillis = v
	}
	if v, ok := getEnvInt("APPTCAL_BUFFER_DAYS"); ok && v > 0 {
		cfg.BufferDays = v
	}
	if v, ok := getEnvInt("APPTCAL_REMINDER_BUFFER"); ok && v > 0 {
		cfg.ReminderBuffer = v
	}
	if v, ok := getEnvString("APPTCAL_REFRESH"); ok {
		cfg.RefreshCron = v
	}
	if v, ok := getEnvString("APPTCAL_REDIS_URL"); ok {
		cfg.Redis.URL = v
	}
	if v, ok := getEnvString("APPTCAL_REDIS_CHANNEL"); ok {
		cfg.Redis.Channel = v
	}
	if v, ok := getEnvString("APPTCAL_MIRROR"); ok {
		cfg.Mirror.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvString("APPTCAL_ICS_PATH"); ok {
		cfg.Mirror.ICS.Path = v
	}
	if v, ok := getEnvString("GOOGLE_CLIENT_ID"); ok {
		cfg.Mirror.Google.ClientID = v
	}
	if v, ok := getEnvString("GOOGLE_CLIENT_SECRET"); ok {
		cfg.Mirror.Google.ClientSecret = v
	}
	if v, ok := getEnvString("GOOGLE_REDIRECT_URL"); ok {
		cfg.Mirror.Google.RedirectURL = v
	}
	if v, ok := getEnvString("APPTCAL_GOOGLE_TOKEN_FILE"); ok {
		cfg.Mirror.Google.TokenFile = v
	}
	if v, ok := getEnvString("APPTCAL_GOOGLE_CALENDAR_ID"); ok {
		cfg.Mirror.Google.CalendarID = v
	}
	cfg.Normalize()
	return cfg
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	return raw, raw != ""
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
