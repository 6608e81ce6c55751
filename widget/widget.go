// Package widget renders the report action bar components as HTML fragments:
// the activity group selector, the user search combobox and the name initials
// filter bars. Markup comes from the templates under assets/templates/widgets.
package widget

import (
	"github.com/BruceGoodGuy/moodle/core"
	"github.com/BruceGoodGuy/moodle/core/group"
	"github.com/BruceGoodGuy/moodle/core/user"
)

type Renderer struct {
	conf     *core.Config
	groupSvc group.ServiceInterface
	usrSvc   user.ServiceInterface
}

func NewRenderer(conf *core.Config, groupSvc group.ServiceInterface, usrSvc user.ServiceInterface) *Renderer {
	return &Renderer{conf: conf, groupSvc: groupSvc, usrSvc: usrSvc}
}

func (r *Renderer) render(name string, data interface{}) (string, error) {
	return core.RenderHTMLTemplate(r.conf, "widgets", name, data)
}
