package importer

import (
	"fmt"
	"io"

	"github.com/MrJamesThe3rd/spendy/internal/importer/bankcsv"
	"github.com/MrJamesThe3rd/spendy/internal/transaction"
)

// Format identifies a supported statement file format.
type Format string

const (
	FormatCSV Format = "csv"
)

type Parser interface {
	Parse(r io.Reader) ([]transaction.CreateParams, error)
}

type Service struct {
	csvParser Parser
}

func NewService() *Service {
	return &Service{
		csvParser: bankcsv.NewParser(),
	}
}

func (s *Service) Import(format Format, r io.Reader) ([]transaction.CreateParams, error) {
	var parser Parser

	switch format {
	case FormatCSV:
		parser = s.csvParser
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}

	return parser.Parse(r)
}
