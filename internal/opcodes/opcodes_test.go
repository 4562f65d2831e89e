package opcodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByName_RoundTripsWithString(t *testing.T) {
	cases := []Opcode{Nop, AconstNull, Bipush, Invokestatic, IfIcmpge, Goto, Return, Arraylength}
	for _, op := range cases {
		name := op.String()
		got, ok := ByName(name)
		assert.True(t, ok, "mnemonic %q should resolve", name)
		assert.Equal(t, op, got)
	}
}

func TestByName_UnknownMnemonic(t *testing.T) {
	_, ok := ByName("not_a_real_opcode")
	assert.False(t, ok)
}

func TestOperandWidth_VariableWidthOpsAreNegative(t *testing.T) {
	assert.Equal(t, -1, OperandWidth(Tableswitch))
	assert.Equal(t, -1, OperandWidth(Lookupswitch))
	assert.Equal(t, -1, OperandWidth(Wide))
}

func TestOperandWidth_KnownFixedWidths(t *testing.T) {
	assert.Equal(t, 1, OperandWidth(Bipush))
	assert.Equal(t, 2, OperandWidth(Invokestatic))
	assert.Equal(t, 2, OperandWidth(Iinc))
	assert.Equal(t, 3, OperandWidth(Multianewarray))
	assert.Equal(t, 4, OperandWidth(Invokeinterface))
	assert.Equal(t, 4, OperandWidth(GotoW))
	assert.Equal(t, 0, OperandWidth(Return))
}
