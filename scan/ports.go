package scan

import (
	"fmt"
	"strconv"
	"strings"
)

var knownPorts = map[int]string{
	21:   "ftp",
	22:   "ssh",
	23:   "telnet",
	53:   "domain",
	80:   "http",
	443:  "https",
	554:  "rtsp",
	1883: "mqtt",
	8000: "irdmi",
	8008: "http-alt",
	8080: "http-alt",
	8443: "pcsync-https",
	8888: "ddi-tcp-1",
}

func DescribePort(port int) string {
	if s, ok := knownPorts[port]; ok {
		return s
	}

	return ""
}

// ParsePorts parses a selection such as "22,80,443,8080-8090".
func ParsePorts(selection string) ([]int, error) {
	return parseSelection(selection, "port", 1, 65535)
}

// ParseHosts parses a selection of host octets such as "1-50".
func ParseHosts(selection string) ([]int, error) {
	return parseSelection(selection, "host", 1, 254)
}

func parseSelection(selection string, noun string, min int, max int) ([]int, error) {

	if strings.TrimSpace(selection) == "" {
		return nil, fmt.Errorf("empty %s selection", noun)
	}

	values := []int{}
	ranges := strings.Split(selection, ",")
	for _, r := range ranges {
		r = strings.TrimSpace(r)
		if strings.Contains(r, "-") {
			parts := strings.Split(r, "-")
			if len(parts) != 2 {
				return nil, fmt.Errorf("invalid %s selection segment: '%s'", noun, r)
			}

			p1, err := strconv.Atoi(strings.TrimSpace(parts[0]))
			if err != nil {
				return nil, fmt.Errorf("invalid %s number: '%s'", noun, parts[0])
			}

			p2, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err != nil {
				return nil, fmt.Errorf("invalid %s number: '%s'", noun, parts[1])
			}

			if p1 > p2 {
				return nil, fmt.Errorf("invalid %s range: %d-%d", noun, p1, p2)
			}

			if p1 < min || p2 > max {
				return nil, fmt.Errorf("%s range %d-%d outside %d-%d", noun, p1, p2, min, max)
			}

			for i := p1; i <= p2; i++ {
				values = append(values, i)
			}

		} else {
			value, err := strconv.Atoi(r)
			if err != nil {
				return nil, fmt.Errorf("invalid %s number: '%s'", noun, r)
			}
			if value < min || value > max {
				return nil, fmt.Errorf("%s %d outside %d-%d", noun, value, min, max)
			}
			values = append(values, value)
		}
	}
	return values, nil
}
