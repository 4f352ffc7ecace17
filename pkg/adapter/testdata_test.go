package adapter

// buildTestGuestModule hand-assembles a minimal WASM binary exporting four
// functions, used as the test double for a guest under verification:
//
//	increment(n i32) -> i32        n + 1
//	two_arg(a, b i32) -> i32       b (echoes the second argument)
//	void_action(a, b i32)          no return value
//	get_value() -> i32             constant 7, stands in for an observer
//
// No memory is exported: this guest keeps no state across calls, so the
// adapter's snapshot/restore is exercised against the empty-capture path.
func buildTestGuestModule() []byte {
	buf := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	typeSec := []byte{0x04,
		0x60, 0x01, 0x7f, 0x01, 0x7f, // (i32) -> i32
		0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f, // (i32,i32) -> i32
		0x60, 0x02, 0x7f, 0x7f, 0x00, // (i32,i32) -> ()
		0x60, 0x00, 0x01, 0x7f, // () -> i32
	}
	buf = appendSection(buf, 0x01, typeSec)

	funcSec := []byte{0x04, 0x00, 0x01, 0x02, 0x03}
	buf = appendSection(buf, 0x03, funcSec)

	var exportSec []byte
	exportSec = append(exportSec, 0x04)
	exportSec = appendExport(exportSec, "increment", 0)
	exportSec = appendExport(exportSec, "two_arg", 1)
	exportSec = appendExport(exportSec, "void_action", 2)
	exportSec = appendExport(exportSec, "get_value", 3)
	buf = appendSection(buf, 0x07, exportSec)

	codeSec := []byte{0x04}
	codeSec = appendCode(codeSec, []byte{0x20, 0x00, 0x41, 0x01, 0x6a, 0x0b}) // local.get 0; i32.const 1; i32.add; end
	codeSec = appendCode(codeSec, []byte{0x20, 0x01, 0x0b})                  // local.get 1; end
	codeSec = appendCode(codeSec, []byte{0x0b})                              // end
	codeSec = appendCode(codeSec, []byte{0x41, 0x07, 0x0b})                  // i32.const 7; end
	buf = appendSection(buf, 0x0a, codeSec)

	return buf
}

func appendSection(buf []byte, id byte, body []byte) []byte {
	buf = append(buf, id, byte(len(body)))
	return append(buf, body...)
}

func appendExport(buf []byte, name string, funcIdx byte) []byte {
	buf = append(buf, byte(len(name)))
	buf = append(buf, name...)
	return append(buf, 0x00, funcIdx)
}

func appendCode(buf []byte, instrs []byte) []byte {
	body := append([]byte{0x00}, instrs...) // zero local declarations
	buf = append(buf, byte(len(body)))
	return append(buf, body...)
}
