package classfile_test

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"

	domainerrors "classvis/internal/core/errors"
	"classvis/internal/engine/classfile"
	cft "classvis/internal/engine/classfile/classfiletest"
)

type recorder struct {
	events []string
}

func (r *recorder) OnClass(name string) {
	r.events = append(r.events, "class "+name)
}

func (r *recorder) OnFieldStart(name, desc string) {
	r.events = append(r.events, fmt.Sprintf("field %s %s", name, desc))
}

func (r *recorder) OnMethodStart(name, desc string) {
	r.events = append(r.events, fmt.Sprintf("method %s%s", name, desc))
}

func (r *recorder) OnConstructorStart(desc string) {
	r.events = append(r.events, "ctor "+desc)
}

func (r *recorder) OnAnnotation(desc string, visible bool) {
	r.events = append(r.events, fmt.Sprintf("annotation %s visible=%t", desc, visible))
}

func (r *recorder) OnMethodReference(owner, name, desc string) {
	r.events = append(r.events, fmt.Sprintf("call %s.%s%s", owner, name, desc))
}

func (r *recorder) OnFieldReference(owner, name, desc string) {
	r.events = append(r.events, fmt.Sprintf("access %s.%s %s", owner, name, desc))
}

const marker = "Lcom/acme/annotations/Private;"

func TestParse_EventOrder(t *testing.T) {
	c := cft.NewClass("com/acme/A").Annotate(marker).SourceFile("A.java")
	c.Field("f", "I").Annotate(marker)
	c.Constructor("()V").Return()
	c.Method("m", "()V").
		Annotate(marker).
		Op(cft.OpAload0).
		GetField("com/acme/A", "f", "I").
		Op(cft.OpPop).
		Op(cft.OpIconst0).
		InvokeStatic("com/acme/B", "helper", "(I)V").
		Return()
	c.Method("<clinit>", "()V").
		Op(cft.OpIconst0).
		PutStatic("com/acme/A", "COUNT", "I").
		Return()

	rec := &recorder{}
	if err := classfile.Parse(c.Bytes(), rec); err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := []string{
		"class com/acme/A",
		"annotation " + marker + " visible=true",
		"field f I",
		"annotation " + marker + " visible=true",
		"ctor ()V",
		"call java/lang/Object.<init>()V",
		"method m()V",
		"annotation " + marker + " visible=true",
		"access com/acme/A.f I",
		"call com/acme/B.helper(I)V",
		"method <clinit>()V",
		"access com/acme/A.COUNT I",
	}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("unexpected events:\n got: %s\nwant: %s", strings.Join(rec.events, "\n      "), strings.Join(want, "\n      "))
	}
}

func TestParse_AnnotationValuesAndVisibility(t *testing.T) {
	c := cft.NewClass("com/acme/A")
	c.Method("m", "()V").
		AnnotateWith(cft.Annotation{Descriptor: "Lcom/acme/Outer;", WithValues: true, Nested: marker}).
		AnnotateWith(cft.Annotation{Descriptor: marker, Invisible: true}).
		Return()

	rec := &recorder{}
	if err := classfile.Parse(c.Bytes(), rec); err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{
		"class com/acme/A",
		"method m()V",
		"annotation Lcom/acme/Outer; visible=true",
		"annotation " + marker + " visible=false",
	}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("unexpected events: %v", rec.events)
	}
}

func TestParse_VariableLengthInstructions(t *testing.T) {
	c := cft.NewClass("com/acme/Switches")
	c.Method("run", "(Ljava/util/List;)V").
		Op(0x00). // shift the first switch off a four-byte boundary
		LoadLong(1 << 40).
		TableSwitch(1, 3).
		Op(0x00, 0x00).
		LookupSwitch(2).
		WideIinc(300, 2).
		LoadDouble(2.5).
		InvokeInterface("java/util/List", "size", "()I", 0).
		InvokeDynamic("run", "()Ljava/lang/Runnable;").
		GetStatic("com/acme/Config", "LIMIT", "J").
		Return()

	rec := &recorder{}
	if err := classfile.Parse(c.Bytes(), rec); err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{
		"class com/acme/Switches",
		"method run(Ljava/util/List;)V",
		"call java/util/List.size()I",
		"access com/acme/Config.LIMIT J",
	}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("unexpected events: %v", rec.events)
	}
}

func TestParse_MalformedInput(t *testing.T) {
	valid := func() *cft.Class {
		c := cft.NewClass("com/acme/A")
		c.Method("m", "()V").InvokeVirtual("com/acme/B", "n", "()V").Return()
		return c
	}

	unknownOpcode := cft.NewClass("com/acme/A")
	unknownOpcode.Method("m", "()V").Op(0xfe)

	badIndex := cft.NewClass("com/acme/A")
	badIndex.Method("m", "()V").Op(cft.OpGetfield, 0xff, 0xff)

	wrongTag := cft.NewClass("com/acme/A")
	// Index 1 is the Utf8 holding the class name, not a Methodref.
	wrongTag.Method("m", "()V").Op(cft.OpInvokevirtual, 0x00, 0x01)

	truncatedSwitch := cft.NewClass("com/acme/A")
	truncatedSwitch.Method("m", "()V").Op(cft.OpTableswitch, 0, 0, 0)

	badMagic := valid().Bytes()
	badMagic[0] = 0xCB

	cases := map[string][]byte{
		"empty":            nil,
		"bad magic":        badMagic,
		"unknown opcode":   unknownOpcode.Bytes(),
		"index overflow":   badIndex.Bytes(),
		"wrong pool tag":   wrongTag.Bytes(),
		"truncated switch": truncatedSwitch.Bytes(),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			err := classfile.Parse(data, &recorder{})
			if !domainerrors.IsCode(err, domainerrors.CodeParseFailure) {
				t.Fatalf("expected PARSE_FAILURE, got %v", err)
			}
		})
	}

	data := valid().Bytes()
	for n := 0; n < len(data); n++ {
		if err := classfile.Parse(data[:n], classfile.BaseVisitor{}); !domainerrors.IsCode(err, domainerrors.CodeParseFailure) {
			t.Fatalf("prefix of %d/%d bytes: expected PARSE_FAILURE, got %v", n, len(data), err)
		}
	}
	if err := classfile.Parse(data, classfile.BaseVisitor{}); err != nil {
		t.Fatalf("full class should parse: %v", err)
	}
}

func TestParse_TruncationCarriesOffset(t *testing.T) {
	err := classfile.Parse([]byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00, 0x00}, classfile.BaseVisitor{})
	var de *domainerrors.DomainError
	if !errors.As(err, &de) || de.Code != domainerrors.CodeParseFailure {
		t.Fatalf("expected PARSE_FAILURE, got %v", err)
	}
	if got := de.Context[domainerrors.CtxOffset]; got != 4 {
		t.Fatalf("offset context = %v, want 4", got)
	}
}

func TestRead_ReaderError(t *testing.T) {
	boom := errors.New("disk on fire")
	err := classfile.Read(iotest.ErrReader(boom), classfile.BaseVisitor{})
	if !domainerrors.IsCode(err, domainerrors.CodeParseFailure) {
		t.Fatalf("expected PARSE_FAILURE, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected underlying error to be preserved, got %v", err)
	}
}

func TestRead_FromReader(t *testing.T) {
	c := cft.NewClass("com/acme/Café")
	rec := &recorder{}
	if err := classfile.Read(strings.NewReader(string(c.Bytes())), rec); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rec.events) != 1 || rec.events[0] != "class com/acme/Café" {
		t.Fatalf("unexpected events: %v", rec.events)
	}
}
