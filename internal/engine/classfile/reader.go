// Package classfile reads compiled JVM class files far enough to recover the
// structure classvis needs: the class name, its members, the annotations on
// each, and the symbolic field and method references made by method bodies.
// Debug attributes, stack map frames and constant values are skipped.
package classfile

import (
	"errors"
	"fmt"
	"io"

	domainerrors "classvis/internal/core/errors"
)

const magic = 0xCAFEBABE

const (
	attrCode                        = "Code"
	attrRuntimeVisibleAnnotations   = "RuntimeVisibleAnnotations"
	attrRuntimeInvisibleAnnotations = "RuntimeInvisibleAnnotations"
)

// annotationRef is a top-level annotation found on the class or a member.
type annotationRef struct {
	descriptor string
	visible    bool
}

type memberInfo struct {
	name        string
	descriptor  string
	annotations []annotationRef
	code        []byte
}

type classInfo struct {
	name        string
	annotations []annotationRef
	fields      []memberInfo
	methods     []memberInfo
	pool        constantPool
}

// Read parses one class file from r and replays it into v.
// Any malformed input yields a PARSE_FAILURE domain error.
func Read(r io.Reader, v Visitor) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeParseFailure, "read class data")
	}
	return Parse(data, v)
}

// Parse is Read over an in-memory class file.
func Parse(data []byte, v Visitor) error {
	info, err := decode(data)
	if err != nil {
		wrapped := domainerrors.Wrap(err, domainerrors.CodeParseFailure, "malformed class file")
		var eod *endOfDataError
		if errors.As(err, &eod) {
			wrapped = domainerrors.AddContext(wrapped, domainerrors.CtxOffset, eod.offset)
		}
		return wrapped
	}
	if err := replay(info, v); err != nil {
		return domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeParseFailure, "malformed method body"),
			domainerrors.CtxClass, info.name,
		)
	}
	return nil
}

func decode(data []byte) (*classInfo, error) {
	r := newByteReader(data)
	if m := r.u4(); r.err == nil && m != magic {
		return nil, fmt.Errorf("bad magic 0x%08X", m)
	}
	r.skip(4) // minor and major version
	if r.err != nil {
		return nil, r.err
	}

	pool, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}
	info := &classInfo{pool: pool}

	r.skip(2) // access flags
	thisClass := r.u2()
	r.skip(2) // super class
	interfaces := int(r.u2())
	r.skip(2 * interfaces)
	if r.err != nil {
		return nil, r.err
	}
	if info.name, err = pool.className(thisClass); err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}

	if info.fields, err = readMembers(r, pool, false); err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	if info.methods, err = readMembers(r, pool, true); err != nil {
		return nil, fmt.Errorf("methods: %w", err)
	}
	var classAttrs memberInfo
	if err := readAttributes(r, pool, &classAttrs, false); err != nil {
		return nil, fmt.Errorf("class attributes: %w", err)
	}
	info.annotations = classAttrs.annotations
	return info, nil
}

func readMembers(r *byteReader, pool constantPool, methods bool) ([]memberInfo, error) {
	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	out := make([]memberInfo, 0, count)
	for i := 0; i < count; i++ {
		r.skip(2) // access flags
		nameIndex := r.u2()
		descIndex := r.u2()
		if r.err != nil {
			return nil, r.err
		}
		var m memberInfo
		var err error
		if m.name, err = pool.utf8(nameIndex); err != nil {
			return nil, fmt.Errorf("member %d name: %w", i, err)
		}
		if m.descriptor, err = pool.utf8(descIndex); err != nil {
			return nil, fmt.Errorf("member %s descriptor: %w", m.name, err)
		}
		if err := readAttributes(r, pool, &m, methods); err != nil {
			return nil, fmt.Errorf("member %s: %w", m.name, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// readAttributes collects annotations and, for methods, the Code array.
// Everything else is skipped by length.
func readAttributes(r *byteReader, pool constantPool, into *memberInfo, method bool) error {
	count := int(r.u2())
	var visible, invisible []annotationRef
	for i := 0; i < count; i++ {
		nameIndex := r.u2()
		length := int(r.u4())
		body := r.bytes(length)
		if r.err != nil {
			return r.err
		}
		name, err := pool.utf8(nameIndex)
		if err != nil {
			return fmt.Errorf("attribute name: %w", err)
		}
		switch {
		case name == attrRuntimeVisibleAnnotations:
			refs, err := readAnnotations(newByteReader(body), pool, true)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			visible = append(visible, refs...)
		case name == attrRuntimeInvisibleAnnotations:
			refs, err := readAnnotations(newByteReader(body), pool, false)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			invisible = append(invisible, refs...)
		case name == attrCode && method:
			code, err := readCode(newByteReader(body))
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			into.code = code
		}
	}
	if r.err != nil {
		return r.err
	}
	into.annotations = append(visible, invisible...)
	return nil
}

func readCode(r *byteReader) ([]byte, error) {
	r.skip(4) // max_stack, max_locals
	length := int(r.u4())
	code := r.bytes(length)
	if r.err != nil {
		return nil, r.err
	}
	return code, nil
}

func readAnnotations(r *byteReader, pool constantPool, visible bool) ([]annotationRef, error) {
	count := int(r.u2())
	out := make([]annotationRef, 0, count)
	for i := 0; i < count; i++ {
		typeIndex := r.u2()
		if r.err != nil {
			return nil, r.err
		}
		desc, err := pool.utf8(typeIndex)
		if err != nil {
			return nil, err
		}
		if err := skipAnnotationBody(r); err != nil {
			return nil, err
		}
		out = append(out, annotationRef{descriptor: desc, visible: visible})
	}
	return out, r.err
}

func skipAnnotationBody(r *byteReader) error {
	pairs := int(r.u2())
	for i := 0; i < pairs && r.err == nil; i++ {
		r.skip(2) // element_name_index
		if err := skipElementValue(r); err != nil {
			return err
		}
	}
	return r.err
}

func skipElementValue(r *byteReader) error {
	tag := r.u1()
	if r.err != nil {
		return r.err
	}
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's', 'c':
		r.skip(2)
	case 'e':
		r.skip(4)
	case '@':
		// Nested annotations are values, not annotations on the element.
		r.skip(2)
		return skipAnnotationBody(r)
	case '[':
		n := int(r.u2())
		for i := 0; i < n && r.err == nil; i++ {
			if err := skipElementValue(r); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown element value tag %q", tag)
	}
	return r.err
}

func replay(info *classInfo, v Visitor) error {
	v.OnClass(info.name)
	emitAnnotations(info.annotations, v)
	for _, f := range info.fields {
		v.OnFieldStart(f.name, f.descriptor)
		emitAnnotations(f.annotations, v)
	}
	for _, m := range info.methods {
		if m.name == ConstructorName {
			v.OnConstructorStart(m.descriptor)
		} else {
			v.OnMethodStart(m.name, m.descriptor)
		}
		emitAnnotations(m.annotations, v)
		if len(m.code) == 0 {
			continue
		}
		if err := walkCode(m.code, info.pool, v); err != nil {
			return fmt.Errorf("method %s%s: %w", m.name, m.descriptor, err)
		}
	}
	return nil
}

func emitAnnotations(refs []annotationRef, v Visitor) {
	for _, a := range refs {
		v.OnAnnotation(a.descriptor, a.visible)
	}
}
