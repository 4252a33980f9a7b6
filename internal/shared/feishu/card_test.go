package feishu

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newFakeFeishu(t *testing.T, onMessage func(r *http.Request, body map[string]interface{})) (*httptest.Server, *int32) {
	t.Helper()
	var tokenCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/open-apis/auth/v3/app_access_token/internal":
			atomic.AddInt32(&tokenCalls, 1)
			w.Write([]byte(`{"code":0,"msg":"ok","app_access_token":"t-123","expire":7200}`))
		case r.URL.Path == "/open-apis/im/v1/messages":
			if got := r.Header.Get("Authorization"); got != "Bearer t-123" {
				t.Errorf("expected bearer token, got %q", got)
			}
			var body map[string]interface{}
			json.NewDecoder(r.Body).Decode(&body)
			onMessage(r, body)
			w.Write([]byte(`{"code":0,"msg":"ok","data":{"message_id":"om_1"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &tokenCalls
}

func TestSendCard_PostsInteractiveMessage(t *testing.T) {
	var gotChat, gotType, gotContent string
	srv, tokenCalls := newFakeFeishu(t, func(r *http.Request, body map[string]interface{}) {
		gotType = r.URL.Query().Get("receive_id_type")
		gotChat, _ = body["receive_id"].(string)
		gotContent, _ = body["content"].(string)
	})

	client := NewClient("app", "secret").WithBaseURL(srv.URL)
	card := NewStalePOCard([]StalePO{{PONumber: "PO-202601-0001", VendorName: "Acme", AgeDays: 12}}, "")

	for i := 0; i < 2; i++ {
		if err := client.SendCard(context.Background(), "oc_chat", card); err != nil {
			t.Fatalf("SendCard: %v", err)
		}
	}

	if gotType != "chat_id" || gotChat != "oc_chat" {
		t.Fatalf("unexpected receiver: type=%q id=%q", gotType, gotChat)
	}
	if !strings.Contains(gotContent, "PO-202601-0001") {
		t.Fatalf("card content missing po number: %s", gotContent)
	}
	if n := atomic.LoadInt32(tokenCalls); n != 1 {
		t.Fatalf("expected token to be cached, got %d token calls", n)
	}
}

func TestSendCard_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "app_access_token/internal") {
			w.Write([]byte(`{"code":0,"app_access_token":"t","expire":7200}`))
			return
		}
		w.Write([]byte(`{"code":230002,"msg":"bot not in chat"}`))
	}))
	defer srv.Close()

	err := NewClient("app", "secret").WithBaseURL(srv.URL).SendCard(context.Background(), "oc_x", NewStalePOCard(nil, ""))
	if err == nil || !strings.Contains(err.Error(), "230002") {
		t.Fatalf("expected feishu api error, got %v", err)
	}
}

func TestNewStalePOCard_DetailButton(t *testing.T) {
	card := NewStalePOCard([]StalePO{{PONumber: "PO-1"}}, "https://procure.example.com/notifications")
	found := false
	for _, el := range card.Elements {
		if el.Tag == "action" && len(el.Actions) == 1 && el.Actions[0].URL != "" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected action button with url")
	}
}
