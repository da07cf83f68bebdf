package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidCPF(t *testing.T) {
	valid := []string{
		"529.982.247-25",
		"52998224725",
		"111.444.777-35",
	}
	for _, cpf := range valid {
		require.True(t, ValidCPF(cpf), "expected %s to be valid", cpf)
	}

	invalid := []string{
		"",
		"123",
		"529.982.247-26",
		"111.111.111-11",
		"00000000000",
		"5299822472",
		"529982247255",
		"abc.def.ghi-jk",
	}
	for _, cpf := range invalid {
		require.False(t, ValidCPF(cpf), "expected %s to be invalid", cpf)
	}
}

func TestValidBRPhone(t *testing.T) {
	require.True(t, ValidBRPhone(""))
	require.True(t, ValidBRPhone("   "))
	require.True(t, ValidBRPhone("(87) 99999-0000"))
	require.True(t, ValidBRPhone("8733334444"))
	require.True(t, ValidBRPhone("87999990000"))

	require.False(t, ValidBRPhone("999"))
	require.False(t, ValidBRPhone("879999900001"))
}

func TestValidatorTags(t *testing.T) {
	validate := NewValidator()

	type payload struct {
		CPF   string `validate:"required,cpf"`
		Phone string `validate:"omitempty,br_phone"`
	}

	require.NoError(t, validate.Struct(payload{CPF: "529.982.247-25", Phone: "(87) 99999-0000"}))
	require.Error(t, validate.Struct(payload{CPF: "111.111.111-11"}))
	require.Error(t, validate.Struct(payload{CPF: "529.982.247-25", Phone: "99"}))
}
