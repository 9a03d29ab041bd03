package binary

// Opcode is a single WebAssembly instruction opcode byte. GC proposal
// instructions are a 0xFB prefix byte followed by a LEB128 sub-opcode,
// encoded by the GC* helpers in func_body.go rather than as a single
// byte constant here.
type Opcode = byte

const (
	OpcodeUnreachable Opcode = 0x00
	OpcodeNop         Opcode = 0x01
	OpcodeBlock       Opcode = 0x02
	OpcodeLoop        Opcode = 0x03
	OpcodeIf          Opcode = 0x04
	OpcodeElse        Opcode = 0x05
	OpcodeEnd         Opcode = 0x0b
	OpcodeBr          Opcode = 0x0c
	OpcodeBrIf        Opcode = 0x0d
	OpcodeBrTable     Opcode = 0x0e
	OpcodeReturn      Opcode = 0x0f
	OpcodeCall        Opcode = 0x10
	OpcodeCallIndirect Opcode = 0x11

	OpcodeDrop   Opcode = 0x1a
	OpcodeSelect Opcode = 0x1b

	OpcodeLocalGet  Opcode = 0x20
	OpcodeLocalSet  Opcode = 0x21
	OpcodeLocalTee  Opcode = 0x22
	OpcodeGlobalGet Opcode = 0x23
	OpcodeGlobalSet Opcode = 0x24

	OpcodeI32Load Opcode = 0x28
	OpcodeI64Load Opcode = 0x29

	OpcodeI32Store  Opcode = 0x36
	OpcodeI32Store8 Opcode = 0x3a
	OpcodeI32Load8U Opcode = 0x2d
	OpcodeI32Load8S Opcode = 0x2c

	OpcodeI32Const Opcode = 0x41
	OpcodeI64Const Opcode = 0x42
	OpcodeF32Const Opcode = 0x43
	OpcodeF64Const Opcode = 0x44

	OpcodeI32Eqz Opcode = 0x45
	OpcodeI32Eq  Opcode = 0x46
	OpcodeI32Ne  Opcode = 0x47
	OpcodeI32LtS Opcode = 0x48
	OpcodeI32GtS Opcode = 0x4a
	OpcodeI32LeS Opcode = 0x4c
	OpcodeI32GeS Opcode = 0x4e

	OpcodeI64Eqz Opcode = 0x50
	OpcodeI64Eq  Opcode = 0x51
	OpcodeI64Ne  Opcode = 0x52
	OpcodeI64LtS Opcode = 0x53
	OpcodeI64GtS Opcode = 0x55
	OpcodeI64LeS Opcode = 0x57
	OpcodeI64GeS Opcode = 0x59

	OpcodeF64Eq Opcode = 0x61
	OpcodeF64Ne Opcode = 0x62
	OpcodeF64Lt Opcode = 0x63
	OpcodeF64Gt Opcode = 0x64
	OpcodeF64Le Opcode = 0x65
	OpcodeF64Ge Opcode = 0x66

	OpcodeI32Add Opcode = 0x6a
	OpcodeI32Sub Opcode = 0x6b
	OpcodeI32Mul Opcode = 0x6c
	OpcodeI32And Opcode = 0x71
	OpcodeI32Or  Opcode = 0x72
	OpcodeI32Xor Opcode = 0x73

	OpcodeI64Add  Opcode = 0x7c
	OpcodeI64Sub  Opcode = 0x7d
	OpcodeI64Mul  Opcode = 0x7e
	OpcodeI64DivS Opcode = 0x7f
	OpcodeI64RemS Opcode = 0x81
	OpcodeI64And  Opcode = 0x83
	OpcodeI64Or   Opcode = 0x84
	OpcodeI64Xor  Opcode = 0x85
	OpcodeI64Shl  Opcode = 0x86
	OpcodeI64ShrS Opcode = 0x87

	OpcodeF64Abs   Opcode = 0x99
	OpcodeF64Neg   Opcode = 0x9a
	OpcodeF64Ceil  Opcode = 0x9b
	OpcodeF64Floor Opcode = 0x9c
	OpcodeF64Trunc Opcode = 0x9d
	OpcodeF64Nearest Opcode = 0x9e
	OpcodeF64Sqrt  Opcode = 0x9f
	OpcodeF64Add   Opcode = 0xa0
	OpcodeF64Sub   Opcode = 0xa1
	OpcodeF64Mul   Opcode = 0xa2
	OpcodeF64Div   Opcode = 0xa3

	OpcodeI32WrapI64       Opcode = 0xa7
	OpcodeI32TruncF64S     Opcode = 0xaa
	OpcodeI64ExtendI32S    Opcode = 0xac
	OpcodeI64TruncF64S     Opcode = 0xb0
	OpcodeF64ConvertI64S   Opcode = 0xb9

	// OpcodeGCPrefix introduces every GC proposal instruction; the
	// actual operation is a LEB128 sub-opcode that follows.
	OpcodeGCPrefix Opcode = 0xfb
)

// GC proposal sub-opcodes (follow OpcodeGCPrefix).
const (
	GCStructNew       = 0x00
	GCStructNewDefault = 0x01
	GCStructGet       = 0x02
	GCStructGetS      = 0x03
	GCStructGetU      = 0x04
	GCStructSet       = 0x05
	GCArrayNew        = 0x06
	GCRefTest         = 0x14
	GCRefCast         = 0x16
	GCBrOnCast        = 0x18
	GCRefCastNull     = 0x17
	GCI31New          = 0x1c
	GCI31GetS         = 0x1d
	GCI31GetU         = 0x1e
)

// Reference-type / heap-type encodings used by ref.null and block/local
// reftype immediates (binary format §5.3.4 / GC proposal extensions).
const (
	HeapTypeFuncEncoded = 0x70
	HeapTypeAnyEncoded  = 0x6e
	HeapTypeNoneEncoded = 0x71
	// RefNullable / RefNonNull prefix a concrete heap type index with
	// 0x63 (ref null ht) or 0x64 (ref ht).
	RefNullablePrefix = 0x63
	RefNonNullPrefix  = 0x64
)
