package classfile

// Visitor receives the structural events of one class file in file-layout
// order: the class itself, class annotations, then every field and method with
// its annotations, and for methods the symbolic references made by their code.
type Visitor interface {
	OnClass(name string)
	OnFieldStart(name, descriptor string)
	OnMethodStart(name, descriptor string)
	OnConstructorStart(descriptor string)
	// OnAnnotation applies to whichever member is open, or the class when none is.
	OnAnnotation(descriptor string, visible bool)
	OnMethodReference(owner, name, descriptor string)
	OnFieldReference(owner, name, descriptor string)
}

// BaseVisitor ignores every event. Embed it to implement only what you need.
type BaseVisitor struct{}

func (BaseVisitor) OnClass(string)                           {}
func (BaseVisitor) OnFieldStart(string, string)              {}
func (BaseVisitor) OnMethodStart(string, string)             {}
func (BaseVisitor) OnConstructorStart(string)                {}
func (BaseVisitor) OnAnnotation(string, bool)                {}
func (BaseVisitor) OnMethodReference(string, string, string) {}
func (BaseVisitor) OnFieldReference(string, string, string)  {}

const (
	ConstructorName = "<init>"
	InitializerName = "<clinit>"
)
