package archive

import (
	"strconv"
	"strings"

	"github.com/born-ml/feinsum/internal/einsum"
)

var tableNameReplacer = strings.NewReplacer(
	" ", "_",
	"-", "_",
	"@", "AT",
	"(", "_",
	")", "_",
	".", "DOT",
)

// TableName derives the per-device table name from a device display
// name. The mapping is fixed: archives written by earlier versions use
// the same names.
func TableName(deviceName string) string {
	return tableNameReplacer.Replace(deviceName)
}

// quoteIdent quotes a table name for use in SQL text.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

const createTable = ` (
	subscripts TEXT,
	index_to_length TEXT,
	use_matrix TEXT,
	value_to_dtype TEXT,
	loopy_transform TEXT,
	runtime_in_sec REAL,
	authors TEXT,
	compiler_version TEXT,
	cl_kernel TEXT,
	giga_op_info TEXT,
	timestamp TEXT,
	remarks TEXT
)`

const columns = `subscripts, index_to_length, use_matrix, value_to_dtype, loopy_transform,
	runtime_in_sec, authors, compiler_version, cl_kernel, giga_op_info, timestamp, remarks`

// TimestampLayout is the archived timestamp format, YYYY_MM_DD_HHMMSS.
const TimestampLayout = "2006_01_02_150405"

var escaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

// escape stores newlines as a literal backslash-n. Backslashes are
// doubled so that unescape restores the text exactly.
func escape(s string) string {
	return escaper.Replace(s)
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				c = '\n'
				i++
			case '\\':
				i++
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Row is one archived recording.
type Row struct {
	Subscripts      string
	IndexToLength   string
	UseMatrix       string
	ValueToDType    string
	Transform       string
	RuntimeInSec    float64
	Authors         string
	CompilerVersion string
	Kernel          string
	GigaOpInfo      string
	Timestamp       string
	Remarks         string
}

func (r *Row) fields() []any {
	return []any{
		&r.Subscripts, &r.IndexToLength, &r.UseMatrix, &r.ValueToDType, &r.Transform,
		&r.RuntimeInSec, &r.Authors, &r.CompilerVersion, &r.Kernel, &r.GigaOpInfo,
		&r.Timestamp, &r.Remarks,
	}
}

func (r Row) values() []any {
	return []any{
		r.Subscripts, r.IndexToLength, r.UseMatrix, r.ValueToDType, r.Transform,
		r.RuntimeInSec, r.Authors, r.CompilerVersion, r.Kernel, r.GigaOpInfo,
		r.Timestamp, r.Remarks,
	}
}

// QueryInfo is the structured form of an archived recording.
type QueryInfo struct {
	Transform       string
	RuntimeInSec    float64
	Authors         string
	CompilerVersion string
	Kernel          string
	GigaOpInfo      map[einsum.DataType]float64
	Remarks         string
}

// Info decodes the row: escaped newlines are restored and the op-count
// summary is parsed.
func (r Row) Info() (QueryInfo, error) {
	ops := make(map[einsum.DataType]float64)
	for _, line := range strings.Split(r.GigaOpInfo, "\n") {
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ": ")
		if !ok {
			return QueryInfo{}, &parseError{line: line}
		}
		dt, err := einsum.ParseDataType(name)
		if err != nil {
			return QueryInfo{}, &parseError{line: line, err: err}
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return QueryInfo{}, &parseError{line: line, err: err}
		}
		ops[dt] = v
	}
	return QueryInfo{
		Transform:       unescape(r.Transform),
		RuntimeInSec:    r.RuntimeInSec,
		Authors:         r.Authors,
		CompilerVersion: r.CompilerVersion,
		Kernel:          unescape(r.Kernel),
		GigaOpInfo:      ops,
		Remarks:         r.Remarks,
	}, nil
}

type parseError struct {
	line string
	err  error
}

func (e *parseError) Error() string {
	msg := "malformed op info line " + strconv.Quote(e.line)
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	return msg
}

func (e *parseError) Unwrap() error { return e.err }
