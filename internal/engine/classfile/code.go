package classfile

import (
	"encoding/binary"
	"fmt"
)

const (
	opIinc            = 0x84
	opTableswitch     = 0xaa
	opLookupswitch    = 0xab
	opGetstatic       = 0xb2
	opPutfield        = 0xb5
	opInvokevirtual   = 0xb6
	opInvokespecial   = 0xb7
	opInvokestatic    = 0xb8
	opInvokeinterface = 0xb9
	opWide            = 0xc4
)

const (
	lenInvalid  = 0
	lenVariable = -1
)

// opLengths holds the total encoded length of each fixed-size instruction.
var opLengths = func() [256]int8 {
	var t [256]int8
	set := func(from, to int, n int8) {
		for op := from; op <= to; op++ {
			t[op] = n
		}
	}
	set(0x00, 0x0f, 1) // nop, constants
	t[0x10] = 2        // bipush
	t[0x11] = 3        // sipush
	t[0x12] = 2        // ldc
	set(0x13, 0x14, 3) // ldc_w, ldc2_w
	set(0x15, 0x19, 2) // xload index
	set(0x1a, 0x35, 1) // xload_n, xaload
	set(0x36, 0x3a, 2) // xstore index
	set(0x3b, 0x83, 1) // xstore_n, xastore, stack, arithmetic
	t[opIinc] = 3
	set(0x85, 0x98, 1) // conversions, comparisons
	set(0x99, 0xa8, 3) // if<cond>, goto, jsr
	t[0xa9] = 2        // ret
	t[opTableswitch] = lenVariable
	t[opLookupswitch] = lenVariable
	set(0xac, 0xb1, 1) // returns
	set(0xb2, 0xb8, 3) // field access, invokevirtual/special/static
	set(0xb9, 0xba, 5) // invokeinterface, invokedynamic
	t[0xbb] = 3        // new
	t[0xbc] = 2        // newarray
	t[0xbd] = 3        // anewarray
	set(0xbe, 0xbf, 1) // arraylength, athrow
	set(0xc0, 0xc1, 3) // checkcast, instanceof
	set(0xc2, 0xc3, 1) // monitorenter, monitorexit
	t[opWide] = lenVariable
	t[0xc5] = 4        // multianewarray
	set(0xc6, 0xc7, 3) // ifnull, ifnonnull
	set(0xc8, 0xc9, 5) // goto_w, jsr_w
	t[0xca] = 1        // breakpoint
	return t
}()

// walkCode emits a reference event for every field and method instruction.
func walkCode(code []byte, pool constantPool, v Visitor) error {
	for pc := 0; pc < len(code); {
		op := code[pc]
		n, err := instructionLength(code, pc)
		if err != nil {
			return err
		}
		if pc+n > len(code) {
			return fmt.Errorf("instruction 0x%02x at %d overruns code (%d bytes)", op, pc, len(code))
		}

		switch {
		case op >= opGetstatic && op <= opPutfield:
			index := binary.BigEndian.Uint16(code[pc+1:])
			owner, name, desc, err := pool.memberRef(index, tagFieldref)
			if err != nil {
				return fmt.Errorf("field instruction at %d: %w", pc, err)
			}
			v.OnFieldReference(owner, name, desc)
		case op >= opInvokevirtual && op <= opInvokeinterface:
			index := binary.BigEndian.Uint16(code[pc+1:])
			owner, name, desc, err := pool.memberRef(index, tagMethodref, tagInterfaceMethodref)
			if err != nil {
				return fmt.Errorf("invoke instruction at %d: %w", pc, err)
			}
			v.OnMethodReference(owner, name, desc)
		}
		pc += n
	}
	return nil
}

func instructionLength(code []byte, pc int) (int, error) {
	op := code[pc]
	switch n := opLengths[op]; n {
	case lenInvalid:
		return 0, fmt.Errorf("unknown opcode 0x%02x at %d", op, pc)
	case lenVariable:
	default:
		return int(n), nil
	}

	switch op {
	case opWide:
		if pc+1 >= len(code) {
			return 0, fmt.Errorf("truncated wide instruction at %d", pc)
		}
		if code[pc+1] == opIinc {
			return 6, nil
		}
		return 4, nil
	case opTableswitch:
		base := align4(pc + 1)
		if base+12 > len(code) {
			return 0, fmt.Errorf("truncated tableswitch at %d", pc)
		}
		low := int32(binary.BigEndian.Uint32(code[base+4:]))
		high := int32(binary.BigEndian.Uint32(code[base+8:]))
		if high < low {
			return 0, fmt.Errorf("tableswitch at %d has high %d < low %d", pc, high, low)
		}
		entries := int64(high) - int64(low) + 1
		if int64(base)+12+entries*4 > int64(len(code)) {
			return 0, fmt.Errorf("truncated tableswitch at %d", pc)
		}
		return base + 12 + int(entries)*4 - pc, nil
	default: // opLookupswitch
		base := align4(pc + 1)
		if base+8 > len(code) {
			return 0, fmt.Errorf("truncated lookupswitch at %d", pc)
		}
		pairs := int32(binary.BigEndian.Uint32(code[base+4:]))
		if pairs < 0 {
			return 0, fmt.Errorf("lookupswitch at %d has negative pair count %d", pc, pairs)
		}
		if int64(base)+8+int64(pairs)*8 > int64(len(code)) {
			return 0, fmt.Errorf("truncated lookupswitch at %d", pc)
		}
		return base + 8 + int(pairs)*8 - pc, nil
	}
}

// align4 rounds offset up to the next multiple of four; switch operands are
// aligned relative to the start of the method's code.
func align4(offset int) int {
	return (offset + 3) &^ 3
}
