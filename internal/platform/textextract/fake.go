package textextract

import "context"

// FakeExtractor returns canned text for tests and local development.
// When Fn is set it takes precedence over Text/Err.
type FakeExtractor struct {
	Text string
	Err  error
	Fn   func(ctx context.Context, pdf []byte) (string, error)
}

func (f *FakeExtractor) ExtractText(ctx context.Context, pdf []byte) (string, error) {
	if f.Fn != nil {
		return f.Fn(ctx, pdf)
	}
	if f.Err != nil {
		return "", f.Err
	}
	return f.Text, nil
}
