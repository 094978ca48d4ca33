package app

import (
	"github.com/prolink-bio/prolink/internal/pipeline"
	"github.com/prolink-bio/prolink/modules/align"
	"github.com/prolink-bio/prolink/modules/archive"
	"github.com/prolink-bio/prolink/modules/cluster"
	"github.com/prolink-bio/prolink/modules/fetch"
	"github.com/prolink-bio/prolink/modules/search"
	"github.com/prolink-bio/prolink/modules/tree"
	"github.com/prolink-bio/prolink/modules/validate"
)

// coreModules is the definitive list of all stage modules that are compiled
// into the prolink binary.
var coreModules = []pipeline.Module{
	&fetch.Module{},
	&search.Module{},
	&validate.Module{},
	&cluster.Module{},
	&align.Module{},
	&tree.Module{},
	&archive.Module{},
}
