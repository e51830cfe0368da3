package config

var defaults = map[string]any{
	"secret": "",

	"session_ttl":          8, // hours
	"pass_expiry_skew":     60,
	"schedule_window_days": 30,
	"expiry_grace_hours":   6,
	"store_timeout":        5,

	"log_level": "info",

	"allowed_networks": "",

	"rbac.policy_file": "./instance/rbac.yaml",

	"base_url": "/",

	"storage.type":        "sqlite",
	"storage.sqlite.path": "data/outpass.db",

	"email.host":     "host.docker.internal",
	"email.port":     25,
	"email.username": "",
	"email.password": "",
	"email.from":     "noreply@example.com",
	"email.enabled":  false,
}

func Defaults() map[string]any {
	values := make(map[string]any)
	for k, v := range defaults {
		values[k] = v
	}
	return values
}
