package docs

import (
	"encoding/json"
	"testing"

	"github.com/swaggo/swag"
)

func TestRegisteredDoc(t *testing.T) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		t.Fatalf("ReadDoc: %v", err)
	}

	var parsed struct {
		Info struct {
			Title   string `json:"title"`
			Version string `json:"version"`
		} `json:"info"`
		Paths map[string]any `json:"paths"`
	}
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("doc is not valid JSON: %v", err)
	}
	if parsed.Info.Title != "ransom API" || parsed.Info.Version != "1.0" {
		t.Errorf("info = %+v", parsed.Info)
	}
	for _, path := range []string{"/render", "/voices"} {
		if _, ok := parsed.Paths[path]; !ok {
			t.Errorf("path %s missing", path)
		}
	}
}
