package config

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/routesim/ripd/internal/neighbour"
)

// Parser implements koanf.Parser for the line-oriented directive grammar of
// spec.md §6: `#` starts a comment, blank lines are ignored, and each
// remaining line is "directive argument...". Recognised directives are
// router-id, input-ports, outputs, route-timeout, periodic-update-time,
// and garbage-time.
type Parser struct{}

// Unmarshal parses raw directive-file bytes into the flat map koanf
// expects, matching the keys of the raw struct's koanf tags.
func (Parser) Unmarshal(b []byte) (map[string]interface{}, error) {
	out := make(map[string]interface{})

	scanner := bufio.NewScanner(bytes.NewReader(b))
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		directive, arg, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("config: malformed directive line %q", line)
		}
		arg = strings.TrimSpace(arg)

		switch directive {
		case "router-id":
			v, err := strconv.Atoi(arg)
			if err != nil {
				return nil, fmt.Errorf("config: router-id: %w", err)
			}
			out["router_id"] = v

		case "input-ports":
			ports, err := splitInts(arg)
			if err != nil {
				return nil, fmt.Errorf("config: input-ports: %w", err)
			}
			out["input_ports"] = ports

		case "outputs":
			var triples []string
			for _, part := range strings.Split(arg, ",") {
				triples = append(triples, strings.TrimSpace(part))
			}
			out["outputs"] = triples

		case "route-timeout":
			v, err := strconv.Atoi(arg)
			if err != nil {
				return nil, fmt.Errorf("config: route-timeout: %w", err)
			}
			out["route_timeout"] = v

		case "periodic-update-time":
			v, err := strconv.Atoi(arg)
			if err != nil {
				return nil, fmt.Errorf("config: periodic-update-time: %w", err)
			}
			out["periodic_update_time"] = v

		case "garbage-time":
			v, err := strconv.Atoi(arg)
			if err != nil {
				return nil, fmt.Errorf("config: garbage-time: %w", err)
			}
			out["garbage_time"] = v

		default:
			return nil, fmt.Errorf("config: unrecognised directive %q", directive)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: reading config: %w", err)
	}

	return out, nil
}

// Marshal is unused by ripd (config is never written back out) but is
// required to satisfy koanf.Parser.
func (Parser) Marshal(m map[string]interface{}) ([]byte, error) {
	return nil, fmt.Errorf("config: marshaling the directive format is not supported")
}

func splitInts(arg string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(arg, ",") {
		part = strings.TrimSpace(part)
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid integer", part)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseOutput parses one "port-cost-id" output triple, per spec.md §6 and
// original_source/parseutils.py's is_valid_link.
func parseOutput(triple string) (neighbour.Neighbour, error) {
	parts := strings.Split(triple, "-")
	if len(parts) != 3 {
		return neighbour.Neighbour{}, fmt.Errorf("config: output %q does not follow the format port-cost-id", triple)
	}

	port, err := strconv.Atoi(parts[0])
	if err != nil {
		return neighbour.Neighbour{}, fmt.Errorf("config: output %q: invalid port: %w", triple, err)
	}
	cost, err := strconv.Atoi(parts[1])
	if err != nil {
		return neighbour.Neighbour{}, fmt.Errorf("config: output %q: invalid cost: %w", triple, err)
	}
	id, err := strconv.Atoi(parts[2])
	if err != nil {
		return neighbour.Neighbour{}, fmt.Errorf("config: output %q: invalid id: %w", triple, err)
	}

	if err := checkRange("outputs port", port, minPort, maxPort); err != nil {
		return neighbour.Neighbour{}, err
	}
	if cost < 1 || cost > 16 {
		return neighbour.Neighbour{}, fmt.Errorf("config: output %q: cost %d out of range [1, 16]", triple, cost)
	}
	if err := checkRange("outputs id", id, minID, maxID); err != nil {
		return neighbour.Neighbour{}, err
	}

	return neighbour.Neighbour{PeerID: id, Port: port, Cost: cost}, nil
}
