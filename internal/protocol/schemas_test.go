package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	epochStartSchema := compile("epoch_start.schema.json")
	epochEndSchema := compile("epoch_end.schema.json")
	battleEndSchema := compile("battle_end.schema.json")
	noticeSchema := compile("notice.schema.json")

	var epochStart any
	_ = json.Unmarshal([]byte(`{
	  "kind":"epoch_start",
	  "epochNumber":3,
	  "marketData":{"prices":{"BTC":64250.5},"timestamp":1714000000}
	}`), &epochStart)
	validate(epochStartSchema, epochStart)

	var epochEnd any
	_ = json.Unmarshal([]byte(`{
	  "kind":"epoch_end",
	  "agentStates":[
	    {"id":"a1","name":"Rook","class":"warrior","hp":42,"maxHp":100,"alive":true,"kills":1,
	     "attacking":true,"attacked":false,"defending":false,"predictionResult":"none"},
	    {"id":"a2","name":"Sable","class":"oracle","hp":88,"maxHp":100,"alive":true,"kills":0,
	     "predictionResult":"correct"}
	  ]
	}`), &epochEnd)
	validate(epochEndSchema, epochEnd)

	var battleEnd any
	_ = json.Unmarshal([]byte(`{
	  "kind":"battle_end",
	  "winnerId":"a1",
	  "winnerName":"Rook",
	  "totalEpochs":14
	}`), &battleEnd)
	validate(battleEndSchema, battleEnd)

	var notice any
	_ = json.Unmarshal([]byte(`{
	  "kind":"combat_result",
	  "agentId":"a1",
	  "message":"Rook hits Sable for 12",
	  "epoch":3
	}`), &notice)
	validate(noticeSchema, notice)
}

func TestSchemas_RejectBadSamples(t *testing.T) {
	p := filepath.Join("..", "..", "schemas", "epoch_end.schema.json")
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	// Negative hp and an out-of-set class must both fail.
	var bad any
	_ = json.Unmarshal([]byte(`{
	  "kind":"epoch_end",
	  "agentStates":[{"id":"a1","name":"X","class":"necromancer","hp":-1,"maxHp":100}]
	}`), &bad)
	if err := s.Validate(bad); err == nil {
		t.Fatalf("sample with bad class and negative hp should fail validation")
	}
}
