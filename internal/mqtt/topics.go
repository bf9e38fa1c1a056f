package mqtt

import "strings"

// DefaultTopicPrefix is the namespace of every topic the node uses
const DefaultTopicPrefix = "pico"

// Topics is the fixed topic contract under a prefix
type Topics struct {
	Temperature  string
	Humidity     string
	Distance     string
	LightLevel   string
	Command      string
	Availability string
}

// NewTopics builds the topic set for prefix
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		Temperature:  prefix + "/temperature",
		Humidity:     prefix + "/humidity",
		Distance:     prefix + "/distance",
		LightLevel:   prefix + "/lightlevel",
		Command:      prefix + "/oled",
		Availability: prefix + "/status",
	}
}

// Matches reports whether topic is covered by filter, honouring the
// single-level (+) and multi-level (#) wildcards
func Matches(filter, topic string) bool {
	if filter == topic {
		return true
	}
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	for i, f := range fs {
		if f == "#" {
			return i == len(fs)-1
		}
		if i >= len(ts) {
			return false
		}
		if f != "+" && f != ts[i] {
			return false
		}
	}
	return len(fs) == len(ts)
}
