package mk66mpu

import "mk66-mpu/errcode"

// Errors returned by the driver. They are errcode values so the kernel can
// forward them unchanged.
var (
	ErrCapacityExhausted          error = errcode.CapacityExhausted
	ErrTableFull                  error = errcode.TableFull
	ErrNoActiveAppRegion          error = errcode.NoActiveAppRegion
	ErrMisalignedBookkeeping      error = errcode.MisalignedBookkeeping
	ErrGrowthExceedsKernelReserve error = errcode.GrowthExceedsKernelReserve
	ErrUnknownRegionCountEncoding error = errcode.UnknownRegionCountEncoding
)
