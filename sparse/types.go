package sparse

// FillType classifies the nonzero structure of a matrix, governing which
// SpMV kernel variants apply.
type FillType uint8

const (
	FillScalar FillType = iota // scalar, asymmetric
	FillScalarSym              // scalar, symmetric
	FillBlockDiag33            // 3x3 diagonal blocks, scalar extra-diagonal
	FillNTypes
)

var fillTypeNames = [FillNTypes]string{
	"scalar",
	"scalar symmetric",
	"block 3 diagonal",
}

func (ft FillType) Name() string {
	if ft >= FillNTypes {
		return "unknown"
	}
	return fillTypeNames[ft]
}

// DiagBlockSize returns the number of interlaced components per DOF for the
// fill type.
func (ft FillType) DiagBlockSize() int {
	if ft == FillBlockDiag33 {
		return 3
	}
	return 1
}

// SpMVType selects the operator form of a matrix-vector product.
type SpMVType uint8

const (
	SpMVFull    SpMVType = iota // y = A.x
	SpMVSubDiag                 // y = (A-D).x
	SpMVNTypes
)

var spmvTypeNames = [SpMVNTypes]string{
	"y <= A.x",
	"y <= (A-D).x",
}

func (op SpMVType) Name() string {
	if op >= SpMVNTypes {
		return "unknown"
	}
	return spmvTypeNames[op]
}

// Location tags where a kernel executes and where a matrix's arrays live.
type Location byte

const (
	Host   Location = 'h'
	Device Location = 'd'
)

// StorageType tags the internal matrix representation.
type StorageType uint8

const (
	Native StorageType = iota // separate diagonal + extra-diagonal edge list
	CSR                       // compressed sparse row
	StorageNTypes
)

var storageTypeNames = [StorageNTypes]string{
	"native",
	"CSR",
}

func (st StorageType) Name() string {
	if st >= StorageNTypes {
		return "unknown"
	}
	return storageTypeNames[st]
}
