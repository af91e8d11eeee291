package audit

import "strings"

// ActionResource holds action and resource derived from an HTTP method and chi route pattern.
type ActionResource struct {
	Action   string
	Resource string
}

// ParseRoute returns action and resource for an HTTP method and route pattern
// (e.g. PATCH /api/stores/{storeId}/location).
// Resource is the singular of the first path segment after /api. Action is the last
// literal segment in snake_case when the route names one (clock-in -> clock_in),
// otherwise a verb derived from the method.
func ParseRoute(method, pattern string) ActionResource {
	segs := splitPath(pattern)
	if len(segs) > 0 && segs[0] == "api" {
		segs = segs[1:]
	}
	if len(segs) == 0 {
		return ActionResource{Action: methodToAction(method), Resource: "unknown"}
	}
	resource := singular(segs[0])
	action := methodToAction(method)
	if len(segs) > 1 {
		last := segs[len(segs)-1]
		if !isParam(last) {
			action = strings.ReplaceAll(last, "-", "_")
			if method == "PATCH" || method == "PUT" {
				action = "update_" + action
			}
		}
	}
	return ActionResource{Action: action, Resource: resource}
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" && s != "*" {
			out = append(out, s)
		}
	}
	return out
}

func isParam(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

func singular(s string) string {
	switch {
	case strings.HasSuffix(s, "ies"):
		return strings.TrimSuffix(s, "ies") + "y"
	case strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss"):
		return strings.TrimSuffix(s, "s")
	}
	return s
}

func methodToAction(method string) string {
	switch method {
	case "GET", "HEAD":
		return "get"
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

// IsMutating reports whether method changes server state and should be audited.
func IsMutating(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}
	return false
}
