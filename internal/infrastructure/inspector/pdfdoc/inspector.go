// Package pdfdoc verifies that uploaded bytes parse as a PDF before an
// analysis record is created for them.
package pdfdoc

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/intelliinsight/paper-analysis/internal/core/domain"
)

type Inspector struct{}

func New() *Inspector {
	return &Inspector{}
}

func (i *Inspector) Inspect(fileName string, data []byte) error {
	if err := parse(data); err != nil {
		return domain.WrapError(domain.ErrValidation, "inspect document",
			fmt.Errorf("%s is not a readable PDF: %w", fileName, err))
	}
	return nil
}

// parse isolates the third-party reader, which panics on some malformed
// cross-reference tables.
func parse(data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed document structure: %v", r)
		}
	}()
	_, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	return err
}
