package access

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

type Permission struct {
	Resource string   `yaml:"resource"`
	Actions  []string `yaml:"actions"`
}

type Role struct {
	Description string       `yaml:"description"`
	Permissions []Permission `yaml:"permissions"`
}

type RBACPolicy struct {
	DefaultRole string              `yaml:"default_role"`
	Roles       map[string]Role     `yaml:"roles"`
	Inheritance map[string][]string `yaml:"inheritance"`
}

// RBAC answers permission checks for the fixed application roles. Each
// user carries exactly one role in their account, so checks are keyed by
// role, not user.
type RBAC struct {
	policy      *RBACPolicy
	mu          sync.RWMutex
	policyCache map[string]map[string]bool // role -> "resource:action" -> allowed
}

//go:embed rbac_default.yaml
var defaultPolicy []byte

var (
	rbacInstance *RBAC
	rbacOnce     sync.Once
)

// GetRBAC returns the singleton RBAC instance
func GetRBAC() *RBAC {
	rbacOnce.Do(func() {
		rbacInstance = &RBAC{
			policyCache: make(map[string]map[string]bool),
		}
	})
	return rbacInstance
}

// LoadPolicy loads the RBAC policy from a YAML file. When the file does
// not exist the embedded default policy is used instead, so a fresh
// install works without an instance directory.
func (r *RBAC) LoadPolicy(filepath string) error {
	data, err := os.ReadFile(filepath)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("RBAC policy file not found, using built-in policy", "path", filepath)
			data = defaultPolicy
		} else {
			return fmt.Errorf("failed to read policy file: %w", err)
		}
	}

	var policy RBACPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return fmt.Errorf("failed to parse policy file: %w", err)
	}

	r.mu.Lock()
	r.policy = &policy
	r.policyCache = make(map[string]map[string]bool) // Clear cache
	r.mu.Unlock()

	slog.Info("RBAC policy loaded", "roles", len(policy.Roles))
	return nil
}

// ExpandRoles returns the role plus everything it inherits.
func (r *RBAC) ExpandRoles(role string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if role == "" {
		if r.policy != nil && r.policy.DefaultRole != "" {
			role = r.policy.DefaultRole
		} else {
			slog.Warn("ExpandRoles: empty role with no default role")
			return []string{}
		}
	}

	allRoles := make(map[string]bool)
	allRoles[role] = true
	r.addInheritedRoles(role, allRoles)

	result := make([]string, 0, len(allRoles))
	for name := range allRoles {
		result = append(result, name)
	}
	return result
}

// addInheritedRoles recursively adds inherited roles
func (r *RBAC) addInheritedRoles(role string, roles map[string]bool) {
	if r.policy == nil || r.policy.Inheritance == nil {
		return
	}

	inherited := r.policy.Inheritance[role]
	for _, inheritedRole := range inherited {
		if !roles[inheritedRole] {
			roles[inheritedRole] = true
			r.addInheritedRoles(inheritedRole, roles)
		}
	}
}

// Can checks if a role can perform an action on a resource
func (r *RBAC) Can(role, resource, action string) bool {
	r.mu.RLock()
	if r.policy == nil {
		r.mu.RUnlock()
		slog.Warn("RBAC policy not loaded")
		return false
	}

	cacheKey := fmt.Sprintf("%s:%s", resource, action)
	if cache, exists := r.policyCache[role]; exists {
		if allowed, found := cache[cacheKey]; found {
			r.mu.RUnlock()
			return allowed
		}
	}
	r.mu.RUnlock()

	roles := r.ExpandRoles(role)
	allowed := false

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, roleName := range roles {
		def, exists := r.policy.Roles[roleName]
		if !exists {
			continue
		}

		for _, perm := range def.Permissions {
			if perm.Resource == "*" || perm.Resource == resource {
				for _, act := range perm.Actions {
					if act == "*" || act == action {
						allowed = true
						break
					}
				}
			}
			if allowed {
				break
			}
		}
		if allowed {
			break
		}
	}

	if r.policyCache[role] == nil {
		r.policyCache[role] = make(map[string]bool)
	}
	r.policyCache[role][cacheKey] = allowed

	return allowed
}
