package cmd

// import collectors so their init() functions are called

import (
	_ "github.com/praetorian-inc/vantage/pkg/collectors/misc"
	_ "github.com/praetorian-inc/vantage/pkg/collectors/system"
	_ "github.com/praetorian-inc/vantage/pkg/collectors/user"
)
