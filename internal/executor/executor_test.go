package executor

import (
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"
)

func pistonServer(t *testing.T, handler func(w http.ResponseWriter, body map[string]any)) *httptest.Server {
    t.Helper()
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        switch r.URL.Path {
        case "/runtimes":
            w.Write([]byte("[]"))
        case "/execute":
            var body map[string]any
            if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
                t.Errorf("decode body: %v", err)
            }
            handler(w, body)
        default:
            http.NotFound(w, r)
        }
    }))
    t.Cleanup(srv.Close)
    return srv
}

func TestExecuteSuccess(t *testing.T) {
    var got map[string]any
    srv := pistonServer(t, func(w http.ResponseWriter, body map[string]any) {
        got = body
        w.Write([]byte(`{"run":{"stdout":"hi\n","stderr":"","output":"hi\n","code":0}}`))
    })
    c := NewClient(srv.URL, time.Second)

    res, err := c.Execute(context.Background(), Request{Language: "Python", Code: "print('hi')"})
    if err != nil {
        t.Fatalf("execute: %v", err)
    }
    if !res.Success || res.Output != "hi\n" || res.Error != "" {
        t.Fatalf("unexpected result %#v", res)
    }
    if got["language"] != "python3" || got["version"] != "*" {
        t.Fatalf("unexpected payload %#v", got)
    }
    files := got["files"].([]any)
    if files[0].(map[string]any)["name"] != "main.py" {
        t.Fatalf("unexpected file %#v", files[0])
    }
}

func TestExecuteNoOutput(t *testing.T) {
    srv := pistonServer(t, func(w http.ResponseWriter, _ map[string]any) {
        w.Write([]byte(`{"run":{"output":""}}`))
    })
    res, err := NewClient(srv.URL, time.Second).Execute(context.Background(), Request{Language: "go", Code: "package main"})
    if err != nil {
        t.Fatalf("execute: %v", err)
    }
    if !res.Success || res.Output != noOutput {
        t.Fatalf("unexpected result %#v", res)
    }
}

func TestExecuteCompileAndRuntimeErrors(t *testing.T) {
    srv := pistonServer(t, func(w http.ResponseWriter, body map[string]any) {
        if body["language"] == "rust" {
            w.Write([]byte(`{"compile":{"stderr":"error[E0425]"},"run":{"output":""}}`))
            return
        }
        w.Write([]byte(`{"run":{"stderr":"boom","output":"partial\nboom"}}`))
    })
    c := NewClient(srv.URL, time.Second)

    res, _ := c.Execute(context.Background(), Request{Language: "rs", Code: "fn main() { x }"})
    if res.Success || res.Error != "Compilation Error:\nerror[E0425]" {
        t.Fatalf("unexpected compile result %#v", res)
    }
    res, _ = c.Execute(context.Background(), Request{Language: "js", Code: "throw 1"})
    if res.Success || res.Error != "Runtime Error:\nboom" || res.Output != "partial\nboom" {
        t.Fatalf("unexpected runtime result %#v", res)
    }
}

func TestExecuteUpstreamFailure(t *testing.T) {
    srv := pistonServer(t, func(w http.ResponseWriter, _ map[string]any) {
        w.WriteHeader(http.StatusTooManyRequests)
        w.Write([]byte(`{"message":"Requests limited to 5 per second"}`))
    })
    res, err := NewClient(srv.URL, time.Second).Execute(context.Background(), Request{Language: "ruby", Code: "puts 1"})
    if err != nil {
        t.Fatalf("upstream failures belong in the result, got %v", err)
    }
    if res.Success || res.Error != "Execution failed: Requests limited to 5 per second" {
        t.Fatalf("unexpected result %#v", res)
    }
}

func TestExecuteTimeout(t *testing.T) {
    srv := pistonServer(t, func(w http.ResponseWriter, _ map[string]any) {
        time.Sleep(300 * time.Millisecond)
        w.Write([]byte(`{}`))
    })
    res, err := NewClient(srv.URL, 50*time.Millisecond).Execute(context.Background(), Request{Language: "php", Code: "<?php sleep(60);"})
    if err != nil {
        t.Fatalf("execute: %v", err)
    }
    if res.Success || !strings.Contains(res.Error, "timed out") {
        t.Fatalf("expected timeout, got %#v", res)
    }
}

func TestValidate(t *testing.T) {
    cases := []struct {
        name string
        req  Request
        want string
    }{
        {"empty code", Request{Language: "go", Code: "  "}, "Code must be a non-empty string"},
        {"no language", Request{Code: "x"}, "Language must be specified"},
        {"unsupported", Request{Language: "cobol", Code: "x"}, "Language 'cobol' is not supported"},
        {"too large", Request{Language: "go", Code: strings.Repeat("a", MaxCodeBytes+1)}, "exceeds maximum limit"},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            _, err := Validate(tc.req)
            var re *RequestError
            if !errors.As(err, &re) || !strings.Contains(re.Message, tc.want) {
                t.Fatalf("got %v, want message containing %q", err, tc.want)
            }
        })
    }
}

func TestSanitize(t *testing.T) {
    if got := Sanitize("a\x00b\x07c\td\ne\x7f"); got != "abc\td\ne" {
        t.Fatalf("unexpected sanitized output %q", got)
    }
    long := strings.Repeat("x", MaxOutputRunes+5)
    got := Sanitize(long)
    if !strings.HasSuffix(got, truncatedMarker) || len(got) != MaxOutputRunes+len(truncatedMarker) {
        t.Fatalf("expected truncation, got len %d", len(got))
    }
}

func TestLookup(t *testing.T) {
    for in, want := range map[string]string{"JS": "javascript", "golang": "go", "c++": "cpp", "C#": "csharp", "python": "python"} {
        if got, ok := Canonical(in); !ok || got != want {
            t.Fatalf("%q: got %q,%v want %q", in, got, ok, want)
        }
    }
    if _, ok := Lookup("brainfuck"); ok {
        t.Fatalf("unexpected language match")
    }
    if n := len(Languages()); n != 9 {
        t.Fatalf("expected 9 languages, got %d", n)
    }
}

func TestPing(t *testing.T) {
    srv := pistonServer(t, nil)
    if err := NewClient(srv.URL, time.Second).Ping(context.Background()); err != nil {
        t.Fatalf("ping: %v", err)
    }
    if err := NewClient(srv.URL+"/missing", time.Second).Ping(context.Background()); err == nil {
        t.Fatalf("expected ping failure")
    }
}
