// Package classfiletest assembles small, valid class files in memory so tests
// can exercise the reader and the analysis passes without a JDK.
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

const (
	OpGetstatic       = 0xb2
	OpPutstatic       = 0xb3
	OpGetfield        = 0xb4
	OpPutfield        = 0xb5
	OpInvokevirtual   = 0xb6
	OpInvokespecial   = 0xb7
	OpInvokestatic    = 0xb8
	OpInvokeinterface = 0xb9
	OpInvokedynamic   = 0xba
	OpReturn          = 0xb1
	OpAload0          = 0x2a
	OpIconst0         = 0x03
	OpPop             = 0x57
	OpLdc2W           = 0x14
	OpIinc            = 0x84
	OpWide            = 0xc4
	OpTableswitch     = 0xaa
	OpLookupswitch    = 0xab
)

type pool struct {
	buf   bytes.Buffer
	index map[string]uint16
	next  uint16
}

func newPool() *pool {
	return &pool{index: make(map[string]uint16), next: 1}
}

func (p *pool) intern(key string, slots uint16, write func(*bytes.Buffer)) uint16 {
	if idx, ok := p.index[key]; ok {
		return idx
	}
	idx := p.next
	write(&p.buf)
	p.index[key] = idx
	p.next += slots
	return idx
}

func (p *pool) utf8(s string) uint16 {
	return p.intern("u:"+s, 1, func(b *bytes.Buffer) {
		b.WriteByte(1)
		writeU2(b, uint16(len(s)))
		b.WriteString(s)
	})
}

func (p *pool) class(name string) uint16 {
	nameIdx := p.utf8(name)
	return p.intern("c:"+name, 1, func(b *bytes.Buffer) {
		b.WriteByte(7)
		writeU2(b, nameIdx)
	})
}

func (p *pool) nameAndType(name, desc string) uint16 {
	n, d := p.utf8(name), p.utf8(desc)
	return p.intern("nt:"+name+":"+desc, 1, func(b *bytes.Buffer) {
		b.WriteByte(12)
		writeU2(b, n)
		writeU2(b, d)
	})
}

func (p *pool) ref(tag byte, owner, name, desc string) uint16 {
	c := p.class(owner)
	nt := p.nameAndType(name, desc)
	return p.intern(fmt.Sprintf("r%d:%s.%s:%s", tag, owner, name, desc), 1, func(b *bytes.Buffer) {
		b.WriteByte(tag)
		writeU2(b, c)
		writeU2(b, nt)
	})
}

func (p *pool) long(v int64) uint16 {
	return p.intern(fmt.Sprintf("j:%d", v), 2, func(b *bytes.Buffer) {
		b.WriteByte(5)
		writeU4(b, uint32(uint64(v)>>32))
		writeU4(b, uint32(v))
	})
}

func (p *pool) double(v float64) uint16 {
	bits := math.Float64bits(v)
	return p.intern(fmt.Sprintf("d:%x", bits), 2, func(b *bytes.Buffer) {
		b.WriteByte(6)
		writeU4(b, uint32(bits>>32))
		writeU4(b, uint32(bits))
	})
}

// Annotation describes one annotation to attach. Nested adds an annotation
// valued element, which must not be reported as an annotation on the target.
type Annotation struct {
	Descriptor string
	Invisible  bool
	Nested     string
	WithValues bool
}

// Class builds a single class file.
type Class struct {
	name        string
	super       string
	pool        *pool
	annotations []Annotation
	fields      []*Member
	methods     []*Member
	sourceFile  string
}

// Member is a field or method under construction.
type Member struct {
	class       *Class
	name        string
	desc        string
	annotations []Annotation
	code        []byte
	hasCode     bool
}

// NewClass starts a class with the given internal name (com/acme/Widget).
func NewClass(name string) *Class {
	return &Class{name: name, super: "java/lang/Object", pool: newPool()}
}

func (c *Class) Annotate(desc string) *Class {
	c.annotations = append(c.annotations, Annotation{Descriptor: desc})
	return c
}

func (c *Class) AnnotateWith(a Annotation) *Class {
	c.annotations = append(c.annotations, a)
	return c
}

// SourceFile adds a SourceFile debug attribute.
func (c *Class) SourceFile(name string) *Class {
	c.sourceFile = name
	return c
}

func (c *Class) Field(name, desc string) *Member {
	m := &Member{class: c, name: name, desc: desc}
	c.fields = append(c.fields, m)
	return m
}

func (c *Class) Method(name, desc string) *Member {
	m := &Member{class: c, name: name, desc: desc}
	c.methods = append(c.methods, m)
	return m
}

// Constructor adds an <init> that calls the super constructor.
func (c *Class) Constructor(desc string) *Member {
	return c.Method("<init>", desc).
		Op(OpAload0).
		InvokeSpecial(c.super, "<init>", "()V")
}

func (m *Member) Annotate(desc string) *Member {
	m.annotations = append(m.annotations, Annotation{Descriptor: desc})
	return m
}

func (m *Member) AnnotateWith(a Annotation) *Member {
	m.annotations = append(m.annotations, a)
	return m
}

// Op appends raw bytes to the method's code.
func (m *Member) Op(b ...byte) *Member {
	m.hasCode = true
	m.code = append(m.code, b...)
	return m
}

func (m *Member) u2Op(op byte, idx uint16) *Member {
	return m.Op(op, byte(idx>>8), byte(idx))
}

func (m *Member) GetField(owner, name, desc string) *Member {
	return m.u2Op(OpGetfield, m.class.pool.ref(9, owner, name, desc))
}

func (m *Member) PutField(owner, name, desc string) *Member {
	return m.u2Op(OpPutfield, m.class.pool.ref(9, owner, name, desc))
}

func (m *Member) GetStatic(owner, name, desc string) *Member {
	return m.u2Op(OpGetstatic, m.class.pool.ref(9, owner, name, desc))
}

func (m *Member) PutStatic(owner, name, desc string) *Member {
	return m.u2Op(OpPutstatic, m.class.pool.ref(9, owner, name, desc))
}

func (m *Member) InvokeVirtual(owner, name, desc string) *Member {
	return m.u2Op(OpInvokevirtual, m.class.pool.ref(10, owner, name, desc))
}

func (m *Member) InvokeSpecial(owner, name, desc string) *Member {
	return m.u2Op(OpInvokespecial, m.class.pool.ref(10, owner, name, desc))
}

func (m *Member) InvokeStatic(owner, name, desc string) *Member {
	return m.u2Op(OpInvokestatic, m.class.pool.ref(10, owner, name, desc))
}

func (m *Member) InvokeInterface(owner, name, desc string, argSlots byte) *Member {
	idx := m.class.pool.ref(11, owner, name, desc)
	return m.Op(OpInvokeinterface, byte(idx>>8), byte(idx), argSlots+1, 0)
}

// InvokeDynamic emits an invokedynamic whose name/type point at name and desc.
func (m *Member) InvokeDynamic(name, desc string) *Member {
	nt := m.class.pool.nameAndType(name, desc)
	idx := m.class.pool.intern("indy:"+name+desc, 1, func(b *bytes.Buffer) {
		b.WriteByte(18)
		writeU2(b, 0)
		writeU2(b, nt)
	})
	return m.Op(OpInvokedynamic, byte(idx>>8), byte(idx), 0, 0)
}

func (m *Member) LoadLong(v int64) *Member {
	return m.u2Op(OpLdc2W, m.class.pool.long(v))
}

func (m *Member) LoadDouble(v float64) *Member {
	return m.u2Op(OpLdc2W, m.class.pool.double(v))
}

// WideIinc emits wide iinc, the six-byte form.
func (m *Member) WideIinc(local, delta uint16) *Member {
	return m.Op(OpWide, OpIinc, byte(local>>8), byte(local), byte(delta>>8), byte(delta))
}

// TableSwitch emits a tableswitch over [low, high] with every target at 0,
// padded relative to the current code offset.
func (m *Member) TableSwitch(low, high int32) *Member {
	m.Op(OpTableswitch)
	m.pad()
	m.i4(0)
	m.i4(low)
	m.i4(high)
	for i := low; i <= high; i++ {
		m.i4(0)
	}
	return m
}

// LookupSwitch emits a lookupswitch with n match/offset pairs.
func (m *Member) LookupSwitch(n int32) *Member {
	m.Op(OpLookupswitch)
	m.pad()
	m.i4(0)
	m.i4(n)
	for i := int32(0); i < n; i++ {
		m.i4(i)
		m.i4(0)
	}
	return m
}

func (m *Member) Return() *Member {
	return m.Op(OpReturn)
}

func (m *Member) pad() {
	for len(m.code)%4 != 0 {
		m.code = append(m.code, 0)
	}
}

func (m *Member) i4(v int32) {
	m.code = binary.BigEndian.AppendUint32(m.code, uint32(v))
}

// Bytes serializes the class. Code attributes are written before annotation
// attributes to make sure readers don't depend on attribute order.
func (c *Class) Bytes() []byte {
	p := c.pool
	thisIdx := p.class(c.name)
	superIdx := p.class(c.super)

	var body bytes.Buffer
	writeU2(&body, 0x0021) // public super
	writeU2(&body, thisIdx)
	writeU2(&body, superIdx)
	writeU2(&body, 0) // interfaces

	writeU2(&body, uint16(len(c.fields)))
	for _, f := range c.fields {
		c.writeMember(&body, f, 0x0002)
	}
	writeU2(&body, uint16(len(c.methods)))
	for _, m := range c.methods {
		c.writeMember(&body, m, 0x0001)
	}

	attrs := c.annotationAttributes(c.annotations)
	if c.sourceFile != "" {
		var sf bytes.Buffer
		writeU2(&sf, p.utf8(c.sourceFile))
		attrs = append(attrs, c.attribute("SourceFile", sf.Bytes()))
	}
	writeU2(&body, uint16(len(attrs)))
	for _, a := range attrs {
		body.Write(a)
	}

	var out bytes.Buffer
	writeU4(&out, 0xCAFEBABE)
	writeU2(&out, 0)  // minor
	writeU2(&out, 52) // major: Java 8
	writeU2(&out, p.next)
	out.Write(p.buf.Bytes())
	out.Write(body.Bytes())
	return out.Bytes()
}

func (c *Class) writeMember(w *bytes.Buffer, m *Member, access uint16) {
	writeU2(w, access)
	writeU2(w, c.pool.utf8(m.name))
	writeU2(w, c.pool.utf8(m.desc))

	var attrs [][]byte
	if m.hasCode {
		var code bytes.Buffer
		writeU2(&code, 8) // max_stack
		writeU2(&code, 8) // max_locals
		writeU4(&code, uint32(len(m.code)))
		code.Write(m.code)
		writeU2(&code, 0) // exception table
		var lnt bytes.Buffer
		writeU2(&lnt, 1)
		writeU2(&lnt, 0)
		writeU2(&lnt, 1)
		nested := c.attribute("LineNumberTable", lnt.Bytes())
		writeU2(&code, 1)
		code.Write(nested)
		attrs = append(attrs, c.attribute("Code", code.Bytes()))
	}
	attrs = append(attrs, c.annotationAttributes(m.annotations)...)

	writeU2(w, uint16(len(attrs)))
	for _, a := range attrs {
		w.Write(a)
	}
}

func (c *Class) annotationAttributes(anns []Annotation) [][]byte {
	var visible, invisible []Annotation
	for _, a := range anns {
		if a.Invisible {
			invisible = append(invisible, a)
		} else {
			visible = append(visible, a)
		}
	}
	var out [][]byte
	if len(visible) > 0 {
		out = append(out, c.attribute("RuntimeVisibleAnnotations", c.encodeAnnotations(visible)))
	}
	if len(invisible) > 0 {
		out = append(out, c.attribute("RuntimeInvisibleAnnotations", c.encodeAnnotations(invisible)))
	}
	return out
}

func (c *Class) encodeAnnotations(anns []Annotation) []byte {
	var b bytes.Buffer
	writeU2(&b, uint16(len(anns)))
	for _, a := range anns {
		writeU2(&b, c.pool.utf8(a.Descriptor))
		pairs := 0
		if a.WithValues {
			pairs += 3
		}
		if a.Nested != "" {
			pairs++
		}
		writeU2(&b, uint16(pairs))
		if a.WithValues {
			// value = "reason"
			writeU2(&b, c.pool.utf8("value"))
			b.WriteByte('s')
			writeU2(&b, c.pool.utf8("reason"))
			// kinds = {ElementType.FIELD, ElementType.METHOD}
			writeU2(&b, c.pool.utf8("kinds"))
			b.WriteByte('[')
			writeU2(&b, 2)
			for _, constName := range []string{"FIELD", "METHOD"} {
				b.WriteByte('e')
				writeU2(&b, c.pool.utf8("Ljava/lang/annotation/ElementType;"))
				writeU2(&b, c.pool.utf8(constName))
			}
			// type = Object.class
			writeU2(&b, c.pool.utf8("type"))
			b.WriteByte('c')
			writeU2(&b, c.pool.utf8("Ljava/lang/Object;"))
		}
		if a.Nested != "" {
			writeU2(&b, c.pool.utf8("nested"))
			b.WriteByte('@')
			writeU2(&b, c.pool.utf8(a.Nested))
			writeU2(&b, 1)
			writeU2(&b, c.pool.utf8("label"))
			b.WriteByte('s')
			writeU2(&b, c.pool.utf8("inner"))
		}
	}
	return b.Bytes()
}

func (c *Class) attribute(name string, body []byte) []byte {
	var b bytes.Buffer
	writeU2(&b, c.pool.utf8(name))
	writeU4(&b, uint32(len(body)))
	b.Write(body)
	return b.Bytes()
}

func writeU2(b *bytes.Buffer, v uint16) {
	b.WriteByte(byte(v >> 8))
	b.WriteByte(byte(v))
}

func writeU4(b *bytes.Buffer, v uint32) {
	writeU2(b, uint16(v>>16))
	writeU2(b, uint16(v))
}
