package classfile

import (
	"fmt"
)

const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

type constant struct {
	tag  uint8
	a, b uint16
	utf8 string
}

// constantPool is indexed the way the class file indexes it: slot 0 is unused
// and the slot after a Long or Double is unusable.
type constantPool []constant

func readConstantPool(r *byteReader) (constantPool, error) {
	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	if count == 0 {
		return nil, fmt.Errorf("constant pool count must be at least 1")
	}
	pool := make(constantPool, count)
	for i := 1; i < count; i++ {
		tag := r.u1()
		c := constant{tag: tag}
		switch tag {
		case tagUtf8:
			n := int(r.u2())
			raw := r.bytes(n)
			if r.err != nil {
				return nil, r.err
			}
			s, err := decodeModifiedUTF8(raw)
			if err != nil {
				return nil, fmt.Errorf("constant #%d: %w", i, err)
			}
			c.utf8 = s
		case tagInteger, tagFloat:
			r.skip(4)
		case tagLong, tagDouble:
			r.skip(8)
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			c.a = r.u2()
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			c.a = r.u2()
			c.b = r.u2()
		case tagMethodHandle:
			r.skip(1)
			c.a = r.u2()
		default:
			if r.err != nil {
				return nil, r.err
			}
			return nil, fmt.Errorf("constant #%d: unknown tag %d", i, tag)
		}
		if r.err != nil {
			return nil, r.err
		}
		pool[i] = c
		if tag == tagLong || tag == tagDouble {
			i++
		}
	}
	return pool, nil
}

func (p constantPool) entry(index uint16, want ...uint8) (constant, error) {
	if index == 0 || int(index) >= len(p) {
		return constant{}, fmt.Errorf("constant pool index %d out of range [1,%d)", index, len(p))
	}
	c := p[index]
	for _, tag := range want {
		if c.tag == tag {
			return c, nil
		}
	}
	return constant{}, fmt.Errorf("constant pool index %d has tag %d, want one of %v", index, c.tag, want)
}

func (p constantPool) utf8(index uint16) (string, error) {
	c, err := p.entry(index, tagUtf8)
	if err != nil {
		return "", err
	}
	return c.utf8, nil
}

func (p constantPool) className(index uint16) (string, error) {
	c, err := p.entry(index, tagClass)
	if err != nil {
		return "", err
	}
	return p.utf8(c.a)
}

// memberRef resolves a Fieldref/Methodref/InterfaceMethodref into its owner
// internal name, member name and descriptor.
func (p constantPool) memberRef(index uint16, want ...uint8) (owner, name, descriptor string, err error) {
	ref, err := p.entry(index, want...)
	if err != nil {
		return "", "", "", err
	}
	if owner, err = p.className(ref.a); err != nil {
		return "", "", "", err
	}
	nat, err := p.entry(ref.b, tagNameAndType)
	if err != nil {
		return "", "", "", err
	}
	if name, err = p.utf8(nat.a); err != nil {
		return "", "", "", err
	}
	if descriptor, err = p.utf8(nat.b); err != nil {
		return "", "", "", err
	}
	return owner, name, descriptor, nil
}
