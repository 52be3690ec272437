// Package executor is a client for the external code runner. Nothing in this
// process runs submitted code.
package executor

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "strings"
    "time"
)

const (
    MaxCodeBytes   = 100_000
    MaxOutputRunes = 10_000

    truncatedMarker = "\n... (output truncated)"
    noOutput        = "Code executed successfully (no output)"
)

type Request struct {
    Language string `json:"language"`
    Code     string `json:"code"`
}

type Result struct {
    Success bool   `json:"success"`
    Output  string `json:"output"`
    Error   string `json:"error"`
}

// RequestError is a rejected request; Message is safe to show to the user.
type RequestError struct{ Message string }

func (e *RequestError) Error() string { return e.Message }

type Executor interface {
    Execute(ctx context.Context, req Request) (Result, error)
    Ping(ctx context.Context) error
}

// HTTPClient talks to a Piston-compatible API.
type HTTPClient struct {
    http    *http.Client
    base    string
    timeout time.Duration
}

func NewClient(baseURL string, timeout time.Duration) *HTTPClient {
    if timeout <= 0 {
        timeout = 10 * time.Second
    }
    return &HTTPClient{
        http:    &http.Client{Timeout: timeout + time.Second},
        base:    strings.TrimSuffix(baseURL, "/"),
        timeout: timeout,
    }
}

// Validate checks a request and returns the resolved language.
func Validate(req Request) (Language, error) {
    if strings.TrimSpace(req.Code) == "" {
        return Language{}, &RequestError{Message: "Code must be a non-empty string"}
    }
    if strings.TrimSpace(req.Language) == "" {
        return Language{}, &RequestError{Message: "Language must be specified"}
    }
    lang, ok := Lookup(req.Language)
    if !ok {
        return Language{}, &RequestError{Message: fmt.Sprintf("Language '%s' is not supported. Supported languages: %s", req.Language, names())}
    }
    if len(req.Code) > MaxCodeBytes {
        return Language{}, &RequestError{Message: "Code length exceeds maximum limit (100KB)"}
    }
    return lang, nil
}

type pistonFile struct {
    Name    string `json:"name"`
    Content string `json:"content"`
}

type pistonStage struct {
    Stdout string `json:"stdout"`
    Stderr string `json:"stderr"`
    Output string `json:"output"`
    Code   *int   `json:"code"`
}

type pistonResponse struct {
    Run     *pistonStage `json:"run"`
    Compile *pistonStage `json:"compile"`
    Message string       `json:"message"`
}

// Execute returns a RequestError for invalid input. Upstream failures and
// timeouts are reported in the Result, not as an error.
func (c *HTTPClient) Execute(ctx context.Context, req Request) (Result, error) {
    lang, err := Validate(req)
    if err != nil {
        return Result{}, err
    }
    start := time.Now()
    res := c.run(ctx, lang, req.Code)
    status := "ok"
    if !res.Success {
        status = "error"
    }
    executionsTotal.WithLabelValues(lang.Name, status).Inc()
    executionLatencyMS.Observe(float64(time.Since(start).Milliseconds()))
    return res, nil
}

func (c *HTTPClient) run(ctx context.Context, lang Language, code string) Result {
    ctx, cancel := context.WithTimeout(ctx, c.timeout)
    defer cancel()

    body := map[string]any{
        "language": lang.Runtime,
        "version":  "*",
        "files":    []pistonFile{{Name: "main." + lang.Extension, Content: code}},
    }
    var out bytes.Buffer
    if err := json.NewEncoder(&out).Encode(body); err != nil {
        return failed(err.Error())
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/execute", &out)
    if err != nil {
        return failed(err.Error())
    }
    req.Header.Set("Content-Type", "application/json")
    resp, err := c.http.Do(req)
    if err != nil {
        if errors.Is(ctx.Err(), context.DeadlineExceeded) {
            return Result{Error: fmt.Sprintf("Code execution timed out (%d second limit exceeded)", int(c.timeout.Seconds()))}
        }
        return failed(err.Error())
    }
    defer resp.Body.Close()

    var parsed pistonResponse
    if resp.StatusCode/100 != 2 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
        if json.Unmarshal(b, &parsed) == nil && parsed.Message != "" {
            return failed(parsed.Message)
        }
        return failed(fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(b))))
    }
    if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
        return failed(fmt.Sprintf("decoding response: %v", err))
    }
    return interpret(parsed)
}

func interpret(p pistonResponse) Result {
    if p.Compile != nil && p.Compile.Stderr != "" {
        return Result{Error: "Compilation Error:\n" + Sanitize(p.Compile.Stderr)}
    }
    if p.Run != nil && p.Run.Stderr != "" {
        return Result{
            Error:  "Runtime Error:\n" + Sanitize(p.Run.Stderr),
            Output: Sanitize(p.Run.Output),
        }
    }
    output := ""
    if p.Run != nil {
        output = Sanitize(p.Run.Output)
    }
    if output == "" {
        output = noOutput
    }
    return Result{Success: true, Output: output}
}

func failed(msg string) Result {
    return Result{Error: "Execution failed: " + msg}
}

// Sanitize strips control characters other than tab, newline and carriage
// return, and caps the result length.
func Sanitize(s string) string {
    s = strings.Map(func(r rune) rune {
        if (r < 0x20 && r != '\t' && r != '\n' && r != '\r') || r == 0x7f {
            return -1
        }
        return r
    }, s)
    if r := []rune(s); len(r) > MaxOutputRunes {
        s = string(r[:MaxOutputRunes]) + truncatedMarker
    }
    return s
}

// Ping checks that the runner answers its runtimes listing.
func (c *HTTPClient) Ping(ctx context.Context) error {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/runtimes", nil)
    if err != nil {
        return err
    }
    resp, err := c.http.Do(req)
    if err != nil {
        return err
    }
    defer resp.Body.Close()
    _, _ = io.Copy(io.Discard, resp.Body)
    if resp.StatusCode != http.StatusOK {
        return fmt.Errorf("executor runtimes: unexpected status %s", resp.Status)
    }
    return nil
}

var _ Executor = (*HTTPClient)(nil)
