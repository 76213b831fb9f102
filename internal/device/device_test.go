package device

import (
	"testing"

	"github.com/otronforge/gateway/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectForceCPU(t *testing.T) {
	sel, err := Select(true, models.FamilyLlama, "", Availability{CUDAAvailable: true, MetalAvailable: true})
	require.NoError(t, err)
	assert.Equal(t, CPU, sel.Device)
	// CPU's dtype default follows the host's available RAM (see
	// TestSelectCPUDTypeFollowsAvailableRAM) rather than a fixed value.
	assert.Contains(t, []DType{F16, F32}, sel.DType)
}

func TestSelectCPUDTypeFollowsAvailableRAM(t *testing.T) {
	sel, err := Select(true, models.FamilyLlama, "", Availability{})
	require.NoError(t, err)
	if AvailableRAMGB() >= cpuFullPrecisionRAMGB {
		assert.Equal(t, F32, sel.DType)
	} else {
		assert.Equal(t, F16, sel.DType)
	}
}

func TestSelectCUDADefaultsBF16(t *testing.T) {
	sel, err := Select(false, models.FamilyLlama, "", Availability{CUDAAvailable: true})
	require.NoError(t, err)
	assert.Equal(t, CUDA, sel.Device)
	assert.Equal(t, BF16, sel.DType)
}

func TestSelectMetalWhenNoCUDA(t *testing.T) {
	sel, err := Select(false, models.FamilyLlama, "", Availability{MetalAvailable: true})
	require.NoError(t, err)
	assert.Equal(t, Metal, sel.Device)
	assert.Equal(t, F16, sel.DType)
}

func TestSelectGemmaV3DowngradesMetalToCPU(t *testing.T) {
	sel, err := Select(false, models.FamilyGemmaV3, "", Availability{MetalAvailable: true})
	require.NoError(t, err)
	assert.Equal(t, CPU, sel.Device)
}

func TestSelectDTypeOverride(t *testing.T) {
	sel, err := Select(true, models.FamilyLlama, "f32", Availability{})
	require.NoError(t, err)
	assert.Equal(t, F32, sel.DType)
}

func TestSelectUnknownDTypeOverrideIsFatal(t *testing.T) {
	_, err := Select(true, models.FamilyLlama, "int8", Availability{})
	assert.Error(t, err)
}
