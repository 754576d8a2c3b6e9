package llvm

import (
	"strings"

	"github.com/dj-lumiere/razorforge-codegen/internal/ast"
	"github.com/dj-lumiere/razorforge-codegen/internal/diag"
)

// GenericRegistry holds every generic template declared in the program,
// the dedup sets of instantiations already requested, and the FIFO work
// queue of instantiations still to lower. New instantiation requests
// discovered while flushing the queue are appended to the same queue, so a
// generic record whose field type is itself another uninstantiated generic
// gets picked up without a second pass over the AST.
type GenericRegistry struct {
	g *Generator

	routineTemplates map[string]*ast.RoutineDecl
	recordTemplates  map[string]*ast.RecordDecl
	entityTemplates  map[string]*ast.EntityDecl
	menuTemplates    map[string]*ast.MenuDecl

	instantiatedTypes    map[string]bool
	instantiatedRoutines map[string]bool

	pending []func()
}

func newGenericRegistry(g *Generator) *GenericRegistry {
	return &GenericRegistry{
		g:                    g,
		routineTemplates:     make(map[string]*ast.RoutineDecl),
		recordTemplates:      make(map[string]*ast.RecordDecl),
		entityTemplates:      make(map[string]*ast.EntityDecl),
		menuTemplates:        make(map[string]*ast.MenuDecl),
		instantiatedTypes:    make(map[string]bool),
		instantiatedRoutines: make(map[string]bool),
	}
}

// templateKey derives the lookup key for a routine template: the receiver's
// base name (generic argument list stripped, since a template is registered
// once regardless of how many concrete receivers later instantiate it)
// joined with the method name, or just the bare name for a non-method
// routine. This is the parser-caveat filter: a declaration name such as
// "Text<letter8>.to_cstr" registers under "Text.to_cstr", matching the call
// site "Text<letter8>.to_cstr" or "Text<s8>.to_cstr" alike.
func templateKey(name string) string {
	receiver, method, ok := receiverAndMethod(name)
	if !ok {
		return name
	}
	if lt := strings.IndexByte(receiver, '<'); lt >= 0 {
		receiver = receiver[:lt]
	}
	return receiver + "." + method
}

func (r *GenericRegistry) registerRoutineTemplate(d *ast.RoutineDecl) {
	r.routineTemplates[templateKey(d.Name)] = d
}

func (r *GenericRegistry) registerRecordTemplate(d *ast.RecordDecl) {
	r.recordTemplates[d.Name] = d
}

func (r *GenericRegistry) registerEntityTemplate(d *ast.EntityDecl) {
	r.entityTemplates[d.Name] = d
}

func (r *GenericRegistry) registerMenuTemplate(d *ast.MenuDecl) {
	r.menuTemplates[d.Name] = d
}

// substitutionMap pairs a template's type parameters positionally with a
// set of concrete arguments.
func substitutionMap(params, concreteArgs []string) map[string]string {
	subs := make(map[string]string, len(params))
	for i, p := range params {
		if i < len(concreteArgs) {
			subs[p] = concreteArgs[i]
		}
	}
	return subs
}

// instantiateGenericType requests (and, on first request, enqueues) the
// monomorphization of a generic record/entity/menu named base with the given
// concrete arguments, returning the mangled struct name to reference at the
// call site. Dedup happens eagerly, before the instantiation job itself
// runs, so a self-referential generic (a record holding a field of its own
// type) cannot recurse forever.
func (r *GenericRegistry) instantiateGenericType(base string, concreteArgs []string) (string, error) {
	mangled := mangleGeneric(base, concreteArgs)
	if r.instantiatedTypes[mangled] {
		return mangled, nil
	}
	r.instantiatedTypes[mangled] = true

	if tmpl, ok := r.recordTemplates[base]; ok {
		subs := substitutionMap(tmpl.TypeParams, concreteArgs)
		r.pending = append(r.pending, func() {
			r.g.genRecordType(tmpl, subs)
		})
		return mangled, nil
	}
	if tmpl, ok := r.entityTemplates[base]; ok {
		subs := substitutionMap(tmpl.TypeParams, concreteArgs)
		r.pending = append(r.pending, func() {
			r.g.genEntityType(tmpl, subs)
		})
		return mangled, nil
	}
	if tmpl, ok := r.menuTemplates[base]; ok {
		subs := substitutionMap(tmpl.TypeParams, concreteArgs)
		r.pending = append(r.pending, func() {
			r.g.genMenuType(tmpl, subs)
		})
		return mangled, nil
	}

	return "", diag.TypeResolutionFailure(diag.Span{}, "instantiateGenericType", base)
}

// instantiateRoutine requests the monomorphization of a generic routine or
// method, returning the mangled symbol name to call. receiverConcrete is ""
// for a free routine; otherwise it carries the receiver's full concrete
// type name (e.g. "Vec<s32>"), from which concrete receiver type arguments
// are parsed and take precedence over explicitly supplied typeArgs for any
// parameter name they both cover, matching how a method's own type
// parameters are scoped to its receiver before its explicit parameter list.
func (r *GenericRegistry) instantiateRoutine(key string, receiverConcrete string, typeArgs []string) (string, string, error) {
	tmpl, ok := r.routineTemplates[key]
	if !ok {
		return "", "", diag.TypeResolutionFailure(diag.Span{}, "instantiateRoutine", key)
	}

	concreteArgs := routineConcreteArgs(receiverConcrete, typeArgs)
	subs := substitutionMap(tmpl.TypeParams, concreteArgs)
	returnType := substituteWords(tmpl.ReturnType, subs)

	mangled := mangleGeneric(strings.ReplaceAll(key, ".", "_"), concreteArgs)
	if r.instantiatedRoutines[mangled] {
		return mangled, returnType, nil
	}
	r.instantiatedRoutines[mangled] = true

	r.pending = append(r.pending, func() {
		r.g.genRoutine(tmpl, &genericInstance{mangledName: mangled, subs: subs})
	})
	return mangled, returnType, nil
}

// routineConcreteArgs builds the ordered concrete type-argument list for a
// generic routine/method call: the receiver's own concrete type arguments
// (if any) come first, followed by any explicitly supplied call-site type
// arguments, matching a method's type parameters being scoped to its
// receiver ahead of its own parameter list.
func routineConcreteArgs(receiverConcrete string, typeArgs []string) []string {
	concreteArgs := append([]string(nil), typeArgs...)
	if receiverConcrete != "" {
		if _, recvArgs, ok := parseGeneric(receiverConcrete); ok {
			concreteArgs = append(append([]string(nil), recvArgs...), typeArgs...)
		}
	}
	return concreteArgs
}

// flush drains the pending-instantiation queue to a fixed point: lowering
// one instantiation may enqueue others (a generic field referencing another
// uninstantiated generic), so the loop re-checks for new work each pass
// rather than ranging over a snapshot.
func (r *GenericRegistry) flush() {
	for len(r.pending) > 0 {
		job := r.pending[0]
		r.pending = r.pending[1:]
		job()
	}
}

// genericInstance carries the substitution context for one monomorphized
// routine instantiation through genRoutine.
type genericInstance struct {
	mangledName string
	subs        map[string]string
}

// registrySnapshot is a cycle-free view of a GenericRegistry's dedup state
// for debug dumps: the real struct holds a back-pointer to its owning
// Generator, which owns the registry in turn, so printing it directly would
// walk that cycle.
type registrySnapshot struct {
	PendingJobs          int
	InstantiatedTypes    []string
	InstantiatedRoutines []string
}

func (r *GenericRegistry) snapshot() registrySnapshot {
	s := registrySnapshot{PendingJobs: len(r.pending)}
	for k := range r.instantiatedTypes {
		s.InstantiatedTypes = append(s.InstantiatedTypes, k)
	}
	for k := range r.instantiatedRoutines {
		s.InstantiatedRoutines = append(s.InstantiatedRoutines, k)
	}
	return s
}
