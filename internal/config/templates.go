package config

import (
	"fmt"
	"os"

	gotoml "github.com/pelletier/go-toml/v2"
)

const templateHeader = `# rconsole configuration.
#
# Every key is optional; omitted keys keep their defaults. The positional
# port argument, when valid, overrides "port".
#
# exec.allow restricts the receiver to the listed programs. Leave it empty
# only on a broadcast domain where every sender is trusted.

`

// Template renders Default() as a TOML document.
func Template() (string, error) {
	cfg := Default()
	doc := fileConfig{
		ListenHost:      cfg.ListenHost,
		BroadcastHost:   cfg.BroadcastHost,
		Port:            cfg.Port,
		MaxDatagramSize: cfg.MaxDatagramSize,
		Exec: fileExec{
			Timeout:        cfg.Exec.Timeout.String(),
			Shell:          cfg.Exec.Shell,
			Allow:          cfg.Exec.Allow,
			MaxOutputBytes: cfg.Exec.MaxOutputBytes,
		},
		Admin: fileAdmin{
			Addr:        cfg.Admin.Addr,
			CorsOrigins: cfg.Admin.CorsOrigins,
		},
	}
	body, err := gotoml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("render config template: %w", err)
	}
	return templateHeader + string(body), nil
}

func WriteTemplate(path string, overwrite bool) error {
	template, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
