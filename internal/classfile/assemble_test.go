package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wudi/jvmcore/internal/opcodes"
)

func TestAssemble_StraightLineNoOperands(t *testing.T) {
	code, err := Assemble([]AsmInstr{
		{Op: "bipush", Arg: 41},
		{Op: "iconst_1"},
		{Op: "iadd"},
		{Op: "ireturn"},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{
		byte(opcodes.Bipush), 41,
		byte(opcodes.Iconst1),
		byte(opcodes.Iadd),
		byte(opcodes.Ireturn),
	}, code)
}

func TestAssemble_NegativeImmediate(t *testing.T) {
	code, err := Assemble([]AsmInstr{{Op: "bipush", Arg: -1}})
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(opcodes.Bipush), 0xff}, code)
}

func TestAssemble_BranchLabelForward(t *testing.T) {
	// iload_0; iconst_2; if_icmpge -> skip; iload_0; ireturn; iload_0(skip)
	code, err := Assemble([]AsmInstr{
		{Op: "iload_0"},
		{Op: "iconst_2"},
		{Op: "if_icmpge", To: "skip"},
		{Op: "iload_0"},
		{Op: "ireturn"},
		{Op: "iload_0", Label: "skip"},
	})
	require.NoError(t, err)
	// if_icmpge sits at address 2 (itself 3 bytes wide); its target
	// (the labeled iload_0) is at address 7.
	branchInstrAddr := 2
	targetAddr := 7
	offset := int16(code[branchInstrAddr+1])<<8 | int16(code[branchInstrAddr+2])
	assert.Equal(t, int16(targetAddr-branchInstrAddr), offset)
}

func TestAssemble_Iinc(t *testing.T) {
	code, err := Assemble([]AsmInstr{{Op: "iinc", Arg: 3, Arg2: -2}})
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(opcodes.Iinc), 3, 0xfe}, code)
}

func TestAssemble_Invokeinterface(t *testing.T) {
	code, err := Assemble([]AsmInstr{{Op: "invokeinterface", Arg: 0x0102, Arg2: 2}})
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(opcodes.Invokeinterface), 0x01, 0x02, 2, 0}, code)
}

func TestAssemble_Multianewarray(t *testing.T) {
	code, err := Assemble([]AsmInstr{{Op: "multianewarray", Arg: 0x0007, Arg2: 2}})
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(opcodes.Multianewarray), 0x00, 0x07, 2}, code)
}

func TestAssemble_GotoW(t *testing.T) {
	code, err := Assemble([]AsmInstr{
		{Op: "goto_w", To: "end"},
		{Op: "nop"},
		{Op: "nop"},
		{Op: "nop"},
		{Op: "nop"},
		{Op: "nop", Label: "end"},
	})
	require.NoError(t, err)
	off := int32(code[1])<<24 | int32(code[2])<<16 | int32(code[3])<<8 | int32(code[4])
	assert.Equal(t, int32(9), off) // 5 bytes for goto_w itself + 4 one-byte nops before the labeled one
}

func TestAssemble_UnknownMnemonic(t *testing.T) {
	_, err := Assemble([]AsmInstr{{Op: "frobnicate"}})
	assert.Error(t, err)
}

func TestAssemble_UnknownLabel(t *testing.T) {
	_, err := Assemble([]AsmInstr{{Op: "goto", To: "nowhere"}})
	assert.Error(t, err)
}

func TestAssemble_VariableWidthOpcodeRejected(t *testing.T) {
	_, err := Assemble([]AsmInstr{{Op: "tableswitch"}})
	assert.Error(t, err)
}
