package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"salesdash/internal/core"
	"salesdash/internal/sheets"
)

// SeedFile is the CSV read from the seed directory.
const SeedFile = "records.csv"

// Store serves a table held in memory.
type Store struct {
	mu     sync.RWMutex
	source string
	table  core.Table
}

var _ sheets.RecordReader = (*Store)(nil)

func New(source string, table core.Table) *Store {
	return &Store{source: source, table: table}
}

// NewFromFiles loads base/records.csv, falling back to built-in sample rows
// when the file is missing.
func NewFromFiles(base string) (*Store, error) {
	path := filepath.Join(base, SeedFile)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		table, err := ParseCSV(strings.NewReader(sampleCSV))
		if err != nil {
			return nil, err
		}
		return New("memory:sample", table), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	table, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return New("memory:"+path, table), nil
}

// ParseCSV reads a header-first CSV into a Table. A UTF-8 byte order mark
// on the first cell is dropped.
func ParseCSV(r io.Reader) (core.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return core.Table{}, core.ParseError("read csv", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return sheets.TableFromValues(sheets.StringValues(rows))
}

func (s *Store) SourceID() string {
	return s.source
}

// ReadTable returns the current table. Callers must not modify it.
func (s *Store) ReadTable(_ context.Context) (core.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table, nil
}

// Replace swaps the served table.
func (s *Store) Replace(table core.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = table
}

const sampleCSV = `受注日,納品日,金額,粗利,商流,フェーズ,担当営業A,担当営業B
2023/04/12,2023/05/30,"¥1,200,000",360000,直販,受注,相川直輝,
2023/05/08,2023/07/14,"¥850,000",255000,代理店,受注,佐々木亮,高橋和大
2023/06/21,2023/08/31,"￥２,４００,０００",600000,直販,受注,衛本楓河,
2023/09/03,2023/11/10,"¥430,000",120000,代理店,受注,野沢響,室伏夕
2023/11/15,2024/02/28,"¥2,150,000",700000,直販,受注,湯浅華,
2024/01/09,2024/04/05,"¥990,000",310000,直販,受注,佐々木信,相川直輝
2024/03/18,,"¥640,000",180000,代理店,提案中,韓国,
2024/04/22,2024/06/28,"¥1,780,000",520000,直販,受注,相川直輝,佐々木亮
2024/05/30,2024/08/30,"¥720,000",200000,代理店,受注,高橋和大,
2024/07/11,2024/10/31,"¥3,100,000",950000,直販,受注,衛本楓河,野沢響
2024/09/02,2024/12/20,"¥560,000",150000,代理店,受注,室伏夕,
2024/12/06,2025/03/14,"¥1,340,000",410000,直販,受注,湯浅華,佐々木信
2025/02/17,,"¥880,000",260000,直販,提案中,韓国,
`
