package agent

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"

	"github.com/crystaldolphin/friday/internal/schema"
)

const (
	defaultMaxFileChars = 32000
	fileCapMarker       = "\n...[file truncated]"
	binarySniffLen      = 8000
)

// FileAnalyzer answers a question about one file.
type FileAnalyzer interface {
	Analyze(ctx context.Context, path, question string) (string, error)
}

// ReadError reports that a file's content could not be extracted. The router
// records it in the conversation instead of failing the turn.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string { return fmt.Sprintf("read %s: %v", e.Path, e.Err) }
func (e *ReadError) Unwrap() error { return e.Err }

// ModelAnalyzer extracts a file's text and asks the model about it.
// PDF and HTML files are converted to plain text first.
type ModelAnalyzer struct {
	Client   schema.ModelClient
	MaxChars int // content cap in runes; 0 uses a default
}

func (a ModelAnalyzer) Analyze(ctx context.Context, path, question string) (string, error) {
	content, err := ExtractText(path)
	if err != nil {
		return "", err
	}

	limit := a.MaxChars
	if limit <= 0 {
		limit = defaultMaxFileChars
	}
	if utf8.RuneCountInString(content) > limit {
		content = string([]rune(content)[:limit]) + fileCapMarker
	}

	return a.Client.Complete(ctx, []schema.ChatMessage{
		schema.NewSystemMessage(FileAnalysisPrompt),
		schema.NewUserMessage(fileAnalysisRequest(content, question)),
	})
}

// ExtractText returns the readable text of the file at path. Failures are
// *ReadError.
func ExtractText(path string) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = readPDF(path)
	case ".html", ".htm":
		text, err = readHTML(path)
	default:
		text, err = readPlain(path)
	}
	if err != nil {
		return "", &ReadError{Path: path, Err: err}
	}
	return text, nil
}

func readPlain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sniff := data
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return "", fmt.Errorf("binary file")
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func readHTML(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	article, err := readability.FromReader(bytes.NewReader(data), &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)})
	if err != nil || strings.TrimSpace(article.TextContent) == "" {
		// Not an article; hand the model the markup itself.
		return string(data), nil
	}
	text := strings.TrimSpace(article.TextContent)
	if article.Title != "" {
		text = "# " + article.Title + "\n\n" + text
	}
	return text, nil
}
