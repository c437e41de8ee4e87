// Package translate provides machine translation of submission messages for
// operators.
//
// Submissions arrive in English, Arabic or Kurdish. An operator can ask for
// the message in the language of their UI. Translation uses Google Cloud
// Translation and is optional.
//
// Graceful degradation: when translation is disabled the Translator is nil
// and Translate returns the input unchanged. On rate limiting (HTTP 429) the
// original text is returned as well.
package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/translate"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// backend is the part of the Cloud Translation client in use.
type backend interface {
	Translate(ctx context.Context, inputs []string, target language.Tag, opts *translate.Options) ([]translate.Translation, error)
	Close() error
}

// Result is a translated text.
type Result struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Translator wraps the Cloud Translation client.
type Translator struct {
	client backend
	logger *zap.Logger
}

// NewTranslator creates a Cloud Translation backed Translator.
//
// Returns nil if translation is disabled. credentialsFile may be empty, in
// which case Application Default Credentials are used.
func NewTranslator(ctx context.Context, enabled bool, credentialsFile string, logger *zap.Logger) (*Translator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !enabled {
		logger.Info("⚠️  TRANSLATE_ENABLED not set. Message translation disabled.")
		return nil, nil
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create translation client: %w", err)
	}

	logger.Info("✓ Cloud Translation configured successfully")
	return &Translator{client: client, logger: logger}, nil
}

// Target maps a UI language to the translation target. Kurdish in this
// application means Sorani.
func Target(uiLang string) language.Tag {
	switch strings.ToLower(strings.TrimSpace(uiLang)) {
	case "ar":
		return language.Arabic
	case "ku", "ckb":
		return language.MustParse("ckb")
	default:
		return language.English
	}
}

// Translate translates text into the language of uiLang.
func (t *Translator) Translate(ctx context.Context, text, uiLang string) (Result, error) {
	target := Target(uiLang)
	res := Result{Text: text, Target: target.String()}

	if t == nil || strings.TrimSpace(text) == "" {
		return res, nil
	}

	out, err := t.client.Translate(ctx, []string{text}, target, &translate.Options{Format: translate.Text})
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
			t.logger.Warn("  ⚠️  Translation rate limited, returning original text")
			return res, nil
		}
		return res, fmt.Errorf("translate: %w", err)
	}
	if len(out) == 0 {
		return res, errors.New("translate: empty response")
	}

	res.Text = out[0].Text
	if out[0].Source != language.Und {
		res.Source = out[0].Source.String()
	}
	return res, nil
}

// Close releases the underlying client.
func (t *Translator) Close() error {
	if t == nil {
		return nil
	}
	return t.client.Close()
}
