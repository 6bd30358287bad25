package actor

import (
	"context"
	"net/http/httptest"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("empty context must not carry an actor")
	}
	ctx := NewContext(context.Background(), Actor{ID: "u-1", Token: "tok"})
	a, ok := FromContext(ctx)
	if !ok || a.ID != "u-1" || a.Token != "tok" {
		t.Fatalf("unexpected actor %+v %v", a, ok)
	}
	if _, ok := FromContext(NewContext(context.Background(), Actor{})); ok {
		t.Fatal("blank actor must be rejected")
	}
}

func TestFromRequestAndApply(t *testing.T) {
	in := httptest.NewRequest("POST", "/api/categories", nil)
	in.Header.Set(HeaderActorID, " u-9 ")
	in.Header.Set(HeaderAuth, "Bearer secret")
	a := FromRequest(in)
	if a.ID != "u-9" || a.Token != "secret" {
		t.Fatalf("unexpected actor %+v", a)
	}

	basic := httptest.NewRequest("GET", "/", nil)
	basic.Header.Set(HeaderAuth, "Basic abc")
	if got := FromRequest(basic); got.Token != "" {
		t.Fatalf("non bearer auth must be ignored, got %+v", got)
	}

	out := httptest.NewRequest("PUT", "/v1/admin/categories/1", nil)
	a.Apply(out)
	if out.Header.Get(HeaderActorID) != "u-9" || out.Header.Get(HeaderAuth) != "Bearer secret" {
		t.Fatalf("headers not applied: %v", out.Header)
	}
}
