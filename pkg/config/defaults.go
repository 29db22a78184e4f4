package config

// defaultsTree returns the compiled-in defaults document, keyed the same
// way a user settings document would be, per spec §4.A. Load deep-merges
// a user document over a fresh copy of this tree with dario.cat/mergo.
func defaultsTree() map[string]interface{} {
	return map[string]interface{}{
		"locker": map[string]interface{}{
			"dirname":             "evidence-locker",
			"repo_url":            "",
			"branch":              "",
			"default_branch":      "master",
			"local_path":          "",
			"ttl_tolerance":       600, // seconds
			"depth":               0,
			"shallow_days":        0,
			"extra":               []interface{}{},
			"prev_repo_url":       "",
			"force_push":          false,
			"ignore_signatures":   false,
			"large_file_threshold": 5 * 1024 * 1024,
			"gitconfig":           map[string]interface{}{},
			"partitions":          map[string]interface{}{},
		},
		"runbooks": map[string]interface{}{
			"enabled":  false,
			"base_url": "",
		},
		"notify": map[string]interface{}{
			"slack":      map[string]interface{}{},
			"gh_issues":  map[string]interface{}{},
			"pagerduty":  map[string]interface{}{},
			"findings":   map[string]interface{}{},
		},
		"org": map[string]interface{}{
			"name": "",
		},
		"agent_name":        "",
		"agent_private_key": "",
		"agent_public_key":  "",
		"use_agent_dir":     false,
	}
}
