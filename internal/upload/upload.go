package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"gh-issues/internal/github"
)

const DefaultMaxBytes = 10 * 1024 * 1024

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrEmpty           = errors.New("image data is empty")
	ErrInvalidData     = errors.New("image data is not valid base64")
)

// TooLargeError reports the configured limit that was exceeded.
type TooLargeError struct {
	Limit int64
}

func (e *TooLargeError) Error() string {
	mb := float64(e.Limit) / (1024 * 1024)
	return "image exceeds " + strconv.FormatFloat(mb, 'f', -1, 64) + " MB limit"
}

var (
	unsafeRe   = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	dashRunRe  = regexp.MustCompile(`-+`)
	extCleanRe = regexp.MustCompile(`[^a-z0-9]`)
)

var mimeExt = map[string]string{
	"image/png":     "png",
	"image/jpeg":    "jpg",
	"image/jpg":     "jpg",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
}

type Request struct {
	Name string
	MIME string
	Data string
}

type Result struct {
	URL      string `json:"url"`
	Markdown string `json:"markdown"`
	Path     string `json:"path"`
	Name     string `json:"name"`
}

// Prepared is a validated upload with its repository path decided.
type Prepared struct {
	Content  []byte
	Path     string
	Filename string
	Alt      string
}

type ContentAPI interface {
	GetRepository(ctx context.Context, token, repo string) (github.Repository, error)
	CreateContent(ctx context.Context, token, repo, path string, req github.ContentRequest) (github.ContentResponse, error)
}

type Options struct {
	MaxBytes       int64
	PathPrefix     string
	Branch         string
	FallbackBranch string
}

type Pipeline struct {
	API     ContentAPI
	Options Options
	Now     func() time.Time
	Nonce   func() string
}

// Prepare validates the request in a fixed order (type, emptiness, size)
// and builds the destination path. It never touches the network.
func (p Pipeline) Prepare(req Request) (Prepared, error) {
	mime := strings.ToLower(strings.TrimSpace(req.MIME))
	if !strings.HasPrefix(mime, "image/") {
		return Prepared{}, ErrUnsupportedType
	}
	content, err := decode(req.Data)
	if err != nil {
		return Prepared{}, err
	}
	if len(content) == 0 {
		return Prepared{}, ErrEmpty
	}
	limit := p.Options.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	if int64(len(content)) > limit {
		return Prepared{}, &TooLargeError{Limit: limit}
	}

	stem := SanitizeStem(req.Name)
	filename := p.stamp() + "-" + p.nonce() + "-" + stem + "." + Extension(mime, req.Name)
	return Prepared{
		Content:  content,
		Path:     joinPath(NormalizePrefix(p.Options.PathPrefix), filename),
		Filename: filename,
		Alt:      stem,
	}, nil
}

// Upload commits a prepared image and returns its public URL together with a
// markdown snippet.
func (p Pipeline) Upload(ctx context.Context, token, repo string, prep Prepared) (Result, error) {
	branch := p.branch(ctx, token, repo)
	resp, err := p.API.CreateContent(ctx, token, repo, prep.Path, github.ContentRequest{
		Message: "Add issue image " + prep.Filename,
		Content: prep.Content,
		Branch:  branch,
	})
	if err != nil {
		return Result{}, err
	}
	url := resp.Content.DownloadURL
	if url == "" {
		url = fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s", repo, branch, prep.Path)
	}
	return Result{
		URL:      url,
		Markdown: fmt.Sprintf("![%s](%s)", prep.Alt, url),
		Path:     prep.Path,
		Name:     prep.Filename,
	}, nil
}

func (p Pipeline) branch(ctx context.Context, token, repo string) string {
	if b := strings.TrimSpace(p.Options.Branch); b != "" {
		return b
	}
	if r, err := p.API.GetRepository(ctx, token, repo); err == nil && r.DefaultBranch != "" {
		return r.DefaultBranch
	}
	if b := strings.TrimSpace(p.Options.FallbackBranch); b != "" {
		return b
	}
	return "main"
}

func (p Pipeline) stamp() string {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return now().Format("20060102-150405")
}

func (p Pipeline) nonce() string {
	if p.Nonce != nil {
		return p.Nonce()
	}
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
}

// decode accepts bare base64 or a data URL with any number of media type
// parameters before the payload.
func decode(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if strings.HasPrefix(data, "data:") {
		_, payload, ok := strings.Cut(data, ",")
		if !ok {
			return nil, ErrInvalidData
		}
		data = strings.TrimSpace(payload)
	}
	if data == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(data, "=")); rawErr == nil {
			return raw, nil
		}
		return nil, ErrInvalidData
	}
	return b, nil
}

// SanitizeStem strips the extension and keeps only filename-safe
// characters.
func SanitizeStem(name string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	base = unsafeRe.ReplaceAllString(base, "-")
	base = dashRunRe.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	if base == "" || base == "." || base == "/" {
		return "image"
	}
	return base
}

// Extension prefers the MIME type, then the filename, then png.
func Extension(mime, name string) string {
	if ext, ok := mimeExt[strings.ToLower(mime)]; ok {
		return ext
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(strings.TrimSpace(name))), ".")
	ext = extCleanRe.ReplaceAllString(ext, "")
	if ext == "" {
		return "png"
	}
	return ext
}

// NormalizePrefix turns a configured upload prefix into a clean relative
// repository path.
func NormalizePrefix(prefix string) string {
	prefix = strings.ReplaceAll(prefix, `\`, "/")
	var parts []string
	for _, seg := range strings.Split(prefix, "/") {
		seg = strings.TrimSpace(seg)
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		parts = append(parts, seg)
	}
	return strings.Join(parts, "/")
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
