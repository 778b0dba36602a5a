package ipmi

import "strings"

// Fields is flat `key: value` output, one entry per line.
type Fields map[string]string

// GroupedFields is `key: value` output where values may wrap onto
// following lines. Every wrapped line becomes another entry under the key
// that precedes it.
type GroupedFields map[string][]string

// First returns the first value recorded for key.
func (g GroupedFields) First(key string) string {
	if v := g[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// User is a row of `user list` output.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Priv string `json:"priv"`
}

// ParseFlat parses single-line `key: value` records such as the output of
// `chassis status` or `lan stats get`. The line is split on its first colon;
// lines without one are ignored.
func ParseFlat(data string) Fields {
	res := Fields{}
	for _, line := range strings.Split(data, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		res[key] = strings.TrimSpace(value)
	}
	return res
}

// ParseGrouped parses `mc info` and `lan print` style output. A line with a
// non-empty key before its first colon starts a new key. Any other line is
// appended under the most recent key: `   : more text` lines contribute the
// text after the colon, and a line starting with a colon is kept whole.
// A key with nothing after the colon starts out with an empty list.
func ParseGrouped(data string) GroupedFields {
	res := GroupedFields{}
	last := ""
	for _, line := range strings.Split(data, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if idx := strings.Index(line, ":"); idx > 0 {
			key := strings.TrimSpace(line[:idx])
			value := strings.TrimSpace(line[idx+1:])
			if key != "" {
				res[key] = []string{}
				if value != "" {
					res[key] = append(res[key], value)
				}
				last = key
				continue
			}
			line = line[idx+1:]
		}

		// continuation
		value := strings.TrimSpace(line)
		if last == "" || value == "" {
			continue
		}
		res[last] = append(res[last], value)
	}
	return res
}

// ParseUserList parses `user list` output. The first line is the column
// header and must contain header. Each following row is split on single
// spaces: the first token is the ID, the last the privilege, and the
// non-empty tokens in positions 1 to 3 form the name.
func ParseUserList(data, header string) ([]User, error) {
	users := []User{}
	if header == "" || !strings.Contains(data, header) {
		return users, ErrUnexpectedOutput
	}

	lines := strings.Split(strings.TrimSpace(data), "\n")
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			continue
		}
		tokens := strings.Split(line, " ")

		var name []string
		for _, tok := range tokens[1:min(4, len(tokens))] {
			if tok != "" {
				name = append(name, tok)
			}
		}
		users = append(users, User{
			ID:   tokens[0],
			Name: strings.Join(name, " "),
			Priv: tokens[len(tokens)-1],
		})
	}
	return users, nil
}
