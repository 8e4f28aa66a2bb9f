// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/kaspanet/ordindexer/internal/ordlog"
	"github.com/kaspanet/ordindexer/util/panics"
)

var mainLog, _ = ordlog.Get(ordlog.MAIN)
var spawn = panics.GoroutineWrapperFunc(mainLog)
