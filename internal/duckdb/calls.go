package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-pgx/internal/vcf"
)

// ImportVCF replaces the stored calls with every record read from p and
// records fp as the imported source. It returns the number of records
// imported. The import is all or nothing: on error the previous calls are
// kept, but the previous source is forgotten so IsCurrent reports false.
func (s *Store) ImportVCF(p vcf.RecordParser, fp FileFingerprint) (int, error) {
	ctx := context.Background()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sources`); err != nil {
		return 0, fmt.Errorf("clear sources: %w", err)
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `BEGIN TRANSACTION`); err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}

	count, err := importCalls(ctx, conn, p)
	if err == nil {
		_, err = conn.ExecContext(ctx, `INSERT INTO sources VALUES (?, ?, ?, ?)`,
			fp.Path, fp.Size, fp.ModTime.UnixNano(), int64(count))
		if err != nil {
			err = fmt.Errorf("record source: %w", err)
		}
	}
	if err != nil {
		if _, rbErr := conn.ExecContext(ctx, `ROLLBACK`); rbErr != nil {
			return count, fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return count, err
	}

	if _, err := conn.ExecContext(ctx, `COMMIT`); err != nil {
		return count, fmt.Errorf("commit import: %w", err)
	}
	return count, nil
}

// importCalls clears the calls table and appends every record of p on conn,
// inside the caller's transaction.
func importCalls(ctx context.Context, conn *sql.Conn, p vcf.RecordParser) (int, error) {
	if _, err := conn.ExecContext(ctx, `DELETE FROM calls`); err != nil {
		return 0, fmt.Errorf("clear calls: %w", err)
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "calls")
		return err
	}); err != nil {
		return 0, fmt.Errorf("create appender: %w", err)
	}

	count := 0
	for {
		rec, err := p.Next()
		if err != nil {
			appender.Close()
			return count, fmt.Errorf("read record: %w", err)
		}
		if rec == nil {
			break
		}
		if err := appendRecord(appender, int64(count), rec); err != nil {
			appender.Close()
			return count, err
		}
		count++
	}

	// Close flushes the remaining rows.
	if err := appender.Close(); err != nil {
		return count, fmt.Errorf("flush calls: %w", err)
	}
	return count, nil
}

func appendRecord(appender *goduckdb.Appender, seq int64, rec *vcf.Record) error {
	alt := strings.Join(rec.Alt, ",")

	if len(rec.Calls) == 0 {
		if err := appender.AppendRow(
			seq, rec.Chrom, rec.Pos, rec.End(), rec.ID, rec.Ref, alt,
			int32(-1), "", "", false, "",
		); err != nil {
			return fmt.Errorf("append record: %w", err)
		}
		return nil
	}

	for i, c := range rec.Calls {
		fields, err := json.Marshal(c.Fields)
		if err != nil {
			return fmt.Errorf("encode fields: %w", err)
		}
		if err := appender.AppendRow(
			seq, rec.Chrom, rec.Pos, rec.End(), rec.ID, rec.Ref, alt,
			int32(i), c.Sample, encodeGT(c.GT), c.Phased, string(fields),
		); err != nil {
			return fmt.Errorf("append call: %w", err)
		}
	}
	return nil
}

// ClearCalls removes all stored calls.
func (s *Store) ClearCalls() error {
	if _, err := s.db.Exec("DELETE FROM calls"); err != nil {
		return fmt.Errorf("clear calls: %w", err)
	}
	return nil
}

// RecordCount returns the number of stored records.
func (s *Store) RecordCount() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(DISTINCT seq) FROM calls`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Query returns the stored records overlapping chrom:pos in original file
// order.
func (s *Store) Query(ctx context.Context, chrom string, pos int64) ([]*vcf.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		seq, chrom, pos, id, ref, alt, sample_idx, sample, gt, phased, fields
		FROM calls
		WHERE chrom=? AND pos<=? AND end_pos>=?
		ORDER BY seq, sample_idx`,
		chrom, pos, pos)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	var records []*vcf.Record
	var current *vcf.Record
	lastSeq := int64(-1)
	for rows.Next() {
		var (
			seq, recPos            int64
			sampleIdx              int32
			recChrom, id, ref, alt string
			sample, gt, fields     string
			phased                 bool
		)
		if err := rows.Scan(&seq, &recChrom, &recPos, &id, &ref, &alt,
			&sampleIdx, &sample, &gt, &phased, &fields); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}

		if current == nil || seq != lastSeq {
			current = &vcf.Record{Chrom: recChrom, Pos: recPos, ID: id, Ref: ref}
			if alt != "" {
				current.Alt = strings.Split(alt, ",")
			}
			records = append(records, current)
			lastSeq = seq
		}
		if sampleIdx < 0 {
			continue
		}

		call := vcf.Call{Sample: sample, Phased: phased}
		if call.GT, err = decodeGT(gt); err != nil {
			return nil, fmt.Errorf("decode genotype at %s:%d: %w", recChrom, recPos, err)
		}
		if fields != "" && fields != "null" {
			if err := json.Unmarshal([]byte(fields), &call.Fields); err != nil {
				return nil, fmt.Errorf("decode fields at %s:%d: %w", recChrom, recPos, err)
			}
		}
		current.Calls = append(current.Calls, call)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return records, nil
}

// encodeGT stores allele indices as a comma-separated list; -1 marks a
// missing allele.
func encodeGT(gt []int) string {
	parts := make([]string, len(gt))
	for i, a := range gt {
		parts[i] = strconv.Itoa(a)
	}
	return strings.Join(parts, ",")
}

func decodeGT(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	gt := make([]int, len(parts))
	for i, p := range parts {
		a, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		gt[i] = a
	}
	return gt, nil
}
