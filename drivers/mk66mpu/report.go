package mk66mpu

import (
	"tinygo.org/x/drivers"

	"mk66-mpu/x/conv"
)

// Reporter prints faults on the board's panic UART, one line each:
//
//	mpu: fault port=0 addr=0x20001000 write super-data master=0 pid=0 eacd=0x0002
type Reporter struct {
	out drivers.UART
	buf [96]byte // reuse buffer to avoid allocations
}

// NewReporter returns a reporter writing to out. The UART must already be
// configured.
func NewReporter(out drivers.UART) *Reporter {
	return &Reporter{out: out}
}

// Report writes one line for f.
func (r *Reporter) Report(f Fault) error {
	b := append(r.buf[:0], "mpu: fault port="...)
	b = conv.AppendUint(b, uint64(f.Port))
	b = append(b, " addr=0x"...)
	b = conv.AppendHex(b, uint64(f.Address), 8)
	if f.Write {
		b = append(b, " write "...)
	} else {
		b = append(b, " read "...)
	}
	b = append(b, f.Attr.String()...)
	b = append(b, " master="...)
	b = conv.AppendUint(b, uint64(f.Master))
	b = append(b, " pid="...)
	b = conv.AppendUint(b, uint64(f.PID))
	b = append(b, " eacd=0x"...)
	b = conv.AppendHex(b, uint64(f.AccessControl), 4)
	b = append(b, '\r', '\n')
	_, err := r.out.Write(b)
	return err
}

// ReportAll writes every fault in order, stopping at the first write error.
func (r *Reporter) ReportAll(faults []Fault) error {
	for _, f := range faults {
		if err := r.Report(f); err != nil {
			return err
		}
	}
	return nil
}
