package codec

import (
	"testing"

	"google.golang.org/grpc/encoding"
)

func TestJSON_Registered(t *testing.T) {
	c := encoding.GetCodec(Name)
	if c == nil {
		t.Fatal("json codec not registered")
	}
	type msg struct {
		A string `json:"a"`
	}
	b, err := c.Marshal(&msg{A: "x"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `{"a":"x"}` {
		t.Errorf("Marshal = %s", b)
	}
	var out msg
	if err := c.Unmarshal(b, &out); err != nil || out.A != "x" {
		t.Errorf("Unmarshal = %+v, %v", out, err)
	}
}
