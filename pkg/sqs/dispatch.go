package sqs

import (
	"context"
	"reflect"

	"go-queue/pkg/log"
)

var (
	contextType     = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType       = reflect.TypeOf((*error)(nil)).Elem()
	futureType      = reflect.TypeOf((*Future)(nil))
	handlerType     = reflect.TypeOf((*Handler)(nil)).Elem()
	handlerFuncType = reflect.TypeOf(HandlerFunc(nil))
	attrMapType     = reflect.TypeOf(map[string]MessageAttribute(nil))
	batchResultType = reflect.TypeOf((*BatchResult)(nil))
	stringType      = reflect.TypeOf("")
	intType         = reflect.TypeOf(0)
)

// Result shapes a declared func field may have. Non-Future shapes block
// until the deferred result resolves.
type resultShape int

const (
	resultNone resultShape = iota
	resultError
	resultFuture
	resultValueError
)

// callMeta is the per-invocation view merging descriptor defaults with the
// call's bound arguments. It is created and discarded per call.
type callMeta struct {
	ctx     context.Context
	queue   string
	body    any
	payload []any
	group   string
	dedup   string
	attrs   map[string]MessageAttribute
	max     int32
	handler Handler
}

// boundMethod is one declared operation after construction-time resolution:
// the descriptor, the role of every parameter, and the result shape.
type boundMethod struct {
	field     string
	desc      *Descriptor
	messenger *Messenger
	hasCtx    bool
	roles     []paramRole
	shape     resultShape
	valueType reflect.Type
}

// bindMethod resolves a func field's type against its descriptor. All
// validation here is construction-time: a shape this cannot handle is a
// configuration error, raised before any call is possible.
func bindMethod(m *Messenger, field string, fn reflect.Type, desc *Descriptor, explicit []paramRole) (*boundMethod, error) {
	b := &boundMethod{field: field, desc: desc, messenger: m}

	params := make([]reflect.Type, 0, fn.NumIn())
	for i := 0; i < fn.NumIn(); i++ {
		params = append(params, fn.In(i))
	}
	if len(params) > 0 && params[0] == contextType {
		b.hasCtx = true
		params = params[1:]
	}

	roles := explicit
	if roles == nil {
		inferred, err := inferRoles(field, desc, params)
		if err != nil {
			return nil, err
		}
		roles = inferred
	}
	if len(roles) != len(params) {
		return nil, newConfigError("field %s declares %d parameter roles for %d parameters", field, len(roles), len(params))
	}

	for i, role := range roles {
		if err := checkRole(field, desc, role, params[i]); err != nil {
			return nil, err
		}
	}
	b.roles = roles

	if err := b.checkCompleteness(); err != nil {
		return nil, err
	}
	return b, b.resolveResultShape(fn)
}

// inferRoles assigns roles from parameter types when no params tag is
// present. Only unambiguous assignments are made; anything else requires an
// explicit tag. The first untagged slice on a sendBatch and the first
// untagged func on a receive or poll are the documented fallbacks.
func inferRoles(field string, desc *Descriptor, params []reflect.Type) ([]paramRole, error) {
	roles := make([]paramRole, len(params))
	assigned := map[paramRole]bool{}

	assign := func(i int, role paramRole) {
		roles[i] = role
		assigned[role] = true
	}

	for i, p := range params {
		switch {
		case isHandlerType(p):
			if (desc.Kind == OperationReceive || desc.Kind == OperationPoll) && !assigned[roleHandler] {
				assign(i, roleHandler)
			}
		case p == attrMapType:
			if !assigned[roleAttrs] {
				assign(i, roleAttrs)
			}
		case p.Kind() == reflect.Slice && p.Elem().Kind() != reflect.Uint8:
			if desc.Kind == OperationSendBatch && !assigned[roleBody] {
				assign(i, roleBody)
			}
		case p == stringType:
			switch {
			case desc.Queue == "" && !assigned[roleQueue]:
				assign(i, roleQueue)
			case desc.Fifo && !assigned[roleGroup]:
				assign(i, roleGroup)
			case desc.Fifo && !assigned[roleDedup]:
				assign(i, roleDedup)
			case desc.Kind == OperationSend && !assigned[roleBody]:
				assign(i, roleBody)
			}
		case p.Kind() == reflect.Int || p.Kind() == reflect.Int32 || p.Kind() == reflect.Int64:
			if (desc.Kind == OperationReceive || desc.Kind == OperationPoll) && !assigned[roleMax] {
				assign(i, roleMax)
			}
		default:
			if desc.Kind == OperationSend && !assigned[roleBody] {
				assign(i, roleBody)
			}
		}

		if roles[i] == roleNone {
			return nil, newConfigError("field %s parameter %d has no inferable role; declare it with a params tag", field, i)
		}
	}
	return roles, nil
}

func isHandlerType(p reflect.Type) bool {
	if p.Kind() == reflect.Func {
		return p.ConvertibleTo(handlerFuncType)
	}
	return p.Implements(handlerType)
}

// checkRole verifies a role makes sense for the operation kind and the
// parameter's Go type.
func checkRole(field string, desc *Descriptor, role paramRole, p reflect.Type) error {
	kindErr := func() error {
		return newConfigError("field %s: role is not valid for a %s operation", field, desc.Kind)
	}
	typeErr := func(want string) error {
		return newConfigError("field %s: parameter with that role must be %s, got %s", field, want, p)
	}

	switch role {
	case roleQueue:
		if p != stringType {
			return typeErr("string")
		}
	case roleBody:
		if desc.Kind == OperationReceive || desc.Kind == OperationPoll {
			return kindErr()
		}
		if desc.Kind == OperationSendBatch && p.Kind() != reflect.Slice {
			return typeErr("a slice")
		}
	case roleGroup, roleDedup:
		if desc.Kind != OperationSend {
			return kindErr()
		}
		if p != stringType {
			return typeErr("string")
		}
	case roleAttrs:
		if desc.Kind != OperationSend {
			return kindErr()
		}
		if p != attrMapType {
			return typeErr("map[string]MessageAttribute")
		}
	case roleMax:
		if desc.Kind != OperationReceive && desc.Kind != OperationPoll {
			return kindErr()
		}
		switch p.Kind() {
		case reflect.Int, reflect.Int32, reflect.Int64:
		default:
			return typeErr("an integer")
		}
	case roleHandler:
		if desc.Kind != OperationReceive && desc.Kind != OperationPoll {
			return kindErr()
		}
		if !isHandlerType(p) {
			return typeErr("a Handler or func(*Message) error")
		}
	}
	return nil
}

// checkCompleteness ensures every call can produce the arguments its
// operation kind requires.
func (b *boundMethod) checkCompleteness() error {
	has := map[paramRole]bool{}
	for _, role := range b.roles {
		has[role] = true
	}

	if b.desc.Queue == "" && !has[roleQueue] {
		return newConfigError("field %s resolves no queue name: declare queue= or a queue parameter", b.field)
	}

	switch b.desc.Kind {
	case OperationSend, OperationSendBatch:
		if !has[roleBody] {
			return newConfigError("field %s declares a %s operation without a body parameter", b.field, b.desc.Kind)
		}
	case OperationReceive, OperationPoll:
		if !has[roleHandler] {
			return newConfigError("field %s declares a %s operation without a handler parameter", b.field, b.desc.Kind)
		}
	}

	if b.desc.Fifo && !has[roleGroup] {
		return newConfigError("field %s declares a fifo send without a group parameter", b.field)
	}
	return nil
}

func (b *boundMethod) resolveResultShape(fn reflect.Type) error {
	switch fn.NumOut() {
	case 0:
		b.shape = resultNone
		return nil
	case 1:
		switch fn.Out(0) {
		case errorType:
			b.shape = resultError
			return nil
		case futureType:
			b.shape = resultFuture
			return nil
		}
		return newConfigError("field %s must return error, *Future, or (value, error)", b.field)
	case 2:
		if fn.Out(1) != errorType {
			return newConfigError("field %s second return value must be error", b.field)
		}
		b.shape = resultValueError
		b.valueType = fn.Out(0)
		return b.checkValueType()
	default:
		return newConfigError("field %s declares too many return values", b.field)
	}
}

// checkValueType ensures a (value, error) declaration matches what the
// operation actually resolves to.
func (b *boundMethod) checkValueType() error {
	if b.valueType.Kind() == reflect.Interface && b.valueType.NumMethod() == 0 {
		return nil
	}

	var want reflect.Type
	switch b.desc.Kind {
	case OperationSend:
		want = stringType
	case OperationSendBatch:
		want = batchResultType
	case OperationReceive:
		want = intType
	default:
		return newConfigError("field %s: a %s operation yields no value; return error or *Future", b.field, b.desc.Kind)
	}

	if b.valueType != want {
		return newConfigError("field %s: a %s operation yields %s, not %s", b.field, b.desc.Kind, want, b.valueType)
	}
	return nil
}

// invoke is the dispatch path for one call: bind arguments, validate,
// route, shape the result.
func (b *boundMethod) invoke(args []reflect.Value) []reflect.Value {
	meta, err := b.bind(args)

	var fut *Future
	if err != nil {
		fut = resolvedFuture(nil, err)
	} else {
		fut = b.route(meta)
	}
	return b.results(fut)
}

func (b *boundMethod) bind(args []reflect.Value) (*callMeta, error) {
	meta := &callMeta{
		ctx:   context.Background(),
		queue: b.desc.Queue,
		max:   b.desc.MaxMessages,
	}

	if b.hasCtx {
		if ctx, ok := args[0].Interface().(context.Context); ok && ctx != nil {
			meta.ctx = ctx
		}
		args = args[1:]
	}

	for i, role := range b.roles {
		arg := args[i]
		switch role {
		case roleQueue:
			if override := arg.String(); override != "" {
				meta.queue = override
			}
		case roleBody:
			if b.desc.Kind == OperationSendBatch {
				meta.payload = sliceToAny(arg)
			} else {
				meta.body = arg.Interface()
			}
		case roleGroup:
			meta.group = arg.String()
		case roleDedup:
			meta.dedup = arg.String()
		case roleAttrs:
			meta.attrs, _ = arg.Interface().(map[string]MessageAttribute)
		case roleMax:
			if n := arg.Int(); n > 0 {
				meta.max = int32(n)
			}
		case roleHandler:
			meta.handler = toHandler(arg)
		}
	}

	return meta, b.validateCall(meta)
}

func sliceToAny(v reflect.Value) []any {
	out := make([]any, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out
}

func toHandler(v reflect.Value) Handler {
	if v.Kind() == reflect.Func {
		if v.IsNil() {
			return nil
		}
		return v.Convert(handlerFuncType).Interface().(HandlerFunc)
	}
	h, _ := v.Interface().(Handler)
	return h
}

// validateCall enforces per-call completeness for the resolved kind before
// anything touches the network.
func (b *boundMethod) validateCall(meta *callMeta) error {
	if meta.queue == "" {
		return newCallerError(b.desc.Kind.String(), "no queue name resolved")
	}

	switch b.desc.Kind {
	case OperationSend:
		if meta.body == nil {
			return newCallerError("send", "message body is required")
		}
		if b.desc.Fifo && meta.group == "" {
			return newCallerError("send", "fifo send requires a message group id")
		}
	case OperationSendBatch:
		if len(meta.payload) == 0 {
			return newCallerError("sendBatch", "payload cannot be empty")
		}
	case OperationReceive, OperationPoll:
		if meta.handler == nil {
			return newCallerError(b.desc.Kind.String(), "handler is required")
		}
	}
	return nil
}

// route hands the call to the orchestration service. Send routing is
// mutually exclusive in priority order: fifo, delayed, attributed, plain.
func (b *boundMethod) route(meta *callMeta) *Future {
	m := b.messenger

	switch b.desc.Kind {
	case OperationSend:
		switch {
		case b.desc.Fifo || meta.group != "":
			return m.SendFifo(meta.ctx, meta.queue, meta.body, meta.group, meta.dedup)
		case b.desc.DelaySeconds > 0:
			return m.SendDelayed(meta.ctx, meta.queue, meta.body, b.desc.DelaySeconds)
		case len(meta.attrs) > 0:
			return m.SendWithAttributes(meta.ctx, meta.queue, meta.body, meta.attrs)
		default:
			return m.Send(meta.ctx, meta.queue, meta.body)
		}

	case OperationSendBatch:
		return m.sendBatch(meta.ctx, meta.queue, meta.payload, nil, b.desc.BatchSize)

	case OperationReceive:
		if b.desc.AutoDelete {
			return m.receiveAndDelete(meta.ctx, meta.queue, meta.max, b.desc.WaitTimeSeconds, meta.handler)
		}
		return m.receiveAndProcess(meta.ctx, meta.queue, meta.max, b.desc.WaitTimeSeconds, meta.handler)

	default: // OperationPoll
		opts := &PollOptions{MaxMessages: meta.max, WaitTimeSeconds: b.desc.WaitTimeSeconds}
		return resolvedFuture(nil, m.StartPolling(meta.queue, meta.handler, opts))
	}
}

// results shapes the deferred outcome into the declared return values,
// blocking unless the field returns a *Future.
func (b *boundMethod) results(fut *Future) []reflect.Value {
	if b.shape == resultFuture {
		return []reflect.Value{reflect.ValueOf(fut)}
	}

	value, err := fut.Get()

	switch b.shape {
	case resultNone:
		if err != nil {
			log.Errorf("%s operation failed: %v", b.desc.Kind, err)
		}
		return nil
	case resultError:
		return []reflect.Value{errValue(err)}
	default: // resultValueError
		out := reflect.Zero(b.valueType)
		if value != nil {
			v := reflect.ValueOf(value)
			if v.Type().AssignableTo(b.valueType) {
				out = v
			} else if v.Type().ConvertibleTo(b.valueType) {
				out = v.Convert(b.valueType)
			}
		}
		return []reflect.Value{out, errValue(err)}
	}
}

func errValue(err error) reflect.Value {
	if err == nil {
		return reflect.Zero(errorType)
	}
	v := reflect.New(errorType).Elem()
	v.Set(reflect.ValueOf(err))
	return v
}
