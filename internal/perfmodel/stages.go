package perfmodel

import "github.com/banshee-data/rtgs.sim/internal/config"

type op int

const (
	opAdd op = iota // add or subtract
	opMul
	opExp
	opDiv
	opPow
)

type opTerm struct {
	count float64
	op    op
}

// stage is one arithmetic block of the datapath with its operator mix.
type stage struct {
	name  string
	terms []opTerm
}

// cost folds count*unit over the terms left to right. The explicit
// conversion keeps the compiler from fusing the multiply into the add.
func (s stage) cost(unit func(op) float64) float64 {
	var total float64
	for _, t := range s.terms {
		total += float64(t.count * unit(t.op))
	}
	return total
}

// Rendering datapath, one copy per pixel lane.
var (
	stageRenderA = stage{"rendering_alpha", []opTerm{{5, opAdd}, {9, opMul}, {1, opExp}}}
	stageRenderC = stage{"rendering_color", []opTerm{{2, opAdd}, {2, opMul}}}
	stageGetLoss = stage{"rendering_get_loss", []opTerm{{4, opAdd}, {4, opPow}, {3, opAdd}}}
	stageLoss2D  = stage{"rendering_loss_2dcolor", []opTerm{{1, opMul}}}
	stageLossPA  = stage{"loss_pixelalpha", []opTerm{{16, opAdd}, {12, opMul}}}
	stagePADist  = stage{"pixelalpha_distribution", []opTerm{{4, opAdd}, {7, opMul}}}
	stageDist2D  = stage{"distribution_2dconv_position", []opTerm{{11, opMul}}}
	// energy only: accumulates color, conv and position gradients
	stageAdderCCP = stage{"adder_color_conv_position", []opTerm{{1, opAdd}}}
)

// Preprocessing datapath, one copy per Gaussian lane.
var (
	stageConv2D3D     = stage{"conv2d_3d", []opTerm{{15, opAdd}, {45, opMul}}}
	stageConv3DR      = stage{"conv3d_r", []opTerm{{9, opAdd}, {9, opMul}}}
	stageRQ           = stage{"r_q", []opTerm{{20, opAdd}, {22, opMul}}}
	stageConv2DT      = stage{"conv2d_t", []opTerm{{18, opAdd}, {33, opMul}}}
	stageTJ           = stage{"t_j", []opTerm{{12, opAdd}, {8, opMul}}}
	stageJ3D          = stage{"j_3d", []opTerm{{5, opAdd}, {20, opMul}, {1, opDiv}}}
	stageColorSH      = stage{"color_sh", []opTerm{{3, opMul}}}
	stagePosition2D3D = stage{"position2d_3d", []opTerm{{16, opAdd}, {25, opMul}, {1, opDiv}}}
	stageSHPosition   = stage{"sh_position", []opTerm{{20, opAdd}, {22, opMul}}}
	stageCameraPose   = stage{"position_camera_pose", []opTerm{{48, opAdd}, {54, opMul}}}
)

// The loss to pixel-alpha block is instantiated twice in silicon.
var renderingAreaStages = []stage{
	stageRenderA, stageRenderC, stageGetLoss, stageLoss2D,
	stageLossPA, stageLossPA, stagePADist, stageDist2D,
}

var preprocessStages = []stage{
	stageConv2D3D, stageConv3DR, stageRQ, stageConv2DT, stageTJ,
	stageJ3D, stageColorSH, stagePosition2D3D, stageSHPosition, stageCameraPose,
}

func areaUnit(a config.AreaConfig) func(op) float64 {
	return func(o op) float64 {
		switch o {
		case opMul:
			return a.Mul
		case opExp:
			return a.Exp
		case opDiv:
			return a.Div
		case opPow:
			return a.Pow
		default:
			return a.AddSub
		}
	}
}

func energyUnit(e config.EnergyConfig) func(op) float64 {
	return func(o op) float64 {
		switch o {
		case opMul:
			return e.Mul
		case opExp:
			return e.Exp
		case opDiv:
			return e.Div
		case opPow:
			return e.Pow
		default:
			return e.AddSub
		}
	}
}
