package session

import (
	"encoding/json"
	"fmt"
	"strings"

	domainErrors "github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/cassiomorais/purchases/internal/domain/purchase"
)

// transformer migrates a payload from version v to v+1. Each step is pure;
// the chain is composed generically so adding a schema version means adding
// one function here.
type transformer func(map[string]any) (map[string]any, error)

var transformers = map[int]transformer{
	1: v1ToV2,
	2: v2ToV3,
}

// Convert migrates a serialized payload to the current schema version and
// stamps it. Conversion is deterministic and total for any payload that was
// valid at its declared version. Sessions are short-lived but must survive a
// rolling deployment that upgrades the schema mid-flight.
func Convert(raw string) (string, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "", fmt.Errorf("%w: unparseable payload: %v", domainErrors.ErrSessionConversion, err)
	}

	version, err := payloadVersion(doc)
	if err != nil {
		return "", err
	}
	if version > purchase.CurrentSchemaVersion {
		return "", fmt.Errorf("%w: version %d is newer than current %d",
			domainErrors.ErrSessionConversion, version, purchase.CurrentSchemaVersion)
	}

	for v := version; v < purchase.CurrentSchemaVersion; v++ {
		step, ok := transformers[v]
		if !ok {
			return "", fmt.Errorf("%w: no transformer from version %d", domainErrors.ErrSessionConversion, v)
		}
		doc, err = step(doc)
		if err != nil {
			return "", fmt.Errorf("%w: transform v%d: %v", domainErrors.ErrSessionConversion, v, err)
		}
	}
	doc["version"] = purchase.CurrentSchemaVersion

	out, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainErrors.ErrSessionConversion, err)
	}
	return string(out), nil
}

func payloadVersion(doc map[string]any) (int, error) {
	raw, ok := doc["version"]
	if !ok {
		return 0, fmt.Errorf("%w: missing version", domainErrors.ErrSessionConversion)
	}
	f, ok := raw.(float64)
	if !ok || f != float64(int(f)) || int(f) < 1 {
		return 0, fmt.Errorf("%w: bad version %v", domainErrors.ErrSessionConversion, raw)
	}
	return int(f), nil
}

// v1ToV2 renames the legacy "items" key to "initializedItemCollection".
func v1ToV2(doc map[string]any) (map[string]any, error) {
	if items, ok := doc["items"]; ok {
		doc["initializedItemCollection"] = items
		delete(doc, "items")
	}
	if _, ok := doc["initializedItemCollection"]; !ok {
		doc["initializedItemCollection"] = []any{}
	}
	return doc, nil
}

// v2ToV3 adds the trafficSource field with its default and restructures the
// cascade's removedBillersFor3DS from a comma-joined string into an array.
func v2ToV3(doc map[string]any) (map[string]any, error) {
	if _, ok := doc["trafficSource"]; !ok {
		doc["trafficSource"] = "ALL"
	}
	cascade, ok := doc["cascade"].(map[string]any)
	if !ok {
		return doc, nil
	}
	if joined, ok := cascade["removedBillersFor3DS"].(string); ok {
		var removed []any
		if joined != "" {
			for _, name := range strings.Split(joined, ",") {
				removed = append(removed, strings.TrimSpace(name))
			}
		}
		if removed == nil {
			delete(cascade, "removedBillersFor3DS")
		} else {
			cascade["removedBillersFor3DS"] = removed
		}
	}
	return doc, nil
}
