package dashboard

import "github.com/ghaggin/citas/internal/model"

// Screen identifies a screen implementation. Several routes may share one.
type Screen string

const (
	ScreenLoading          Screen = "loading"
	ScreenInicio           Screen = "inicio"
	ScreenLogin            Screen = "login"
	ScreenTipoUsuario      Screen = "tipo_usuario"
	ScreenRegisterPaciente Screen = "register_paciente"
	ScreenRegisterMedico   Screen = "register_medico"

	ScreenAdminDashboard    Screen = "admin_dashboard"
	ScreenMedicoDashboard   Screen = "medico_dashboard"
	ScreenPacienteDashboard Screen = "paciente_dashboard"

	ScreenCitas           Screen = "citas"
	ScreenPacientes       Screen = "pacientes"
	ScreenMedicos         Screen = "medicos"
	ScreenEspecialidades  Screen = "especialidades"
	ScreenConsultorios    Screen = "consultorios"
	ScreenEps             Screen = "eps"
	ScreenAdministradores Screen = "administradores"
	ScreenPerfil          Screen = "perfil"

	ScreenMisCitasMedico  Screen = "mis_citas_medico"
	ScreenMiAgendaMedico  Screen = "mi_agenda_medico"
	ScreenReportesMedico  Screen = "reportes_medico"
	ScreenHistorialMedico Screen = "historial_medico"

	ScreenMisCitasPaciente    Screen = "mis_citas_paciente"
	ScreenAgendarCitaPaciente Screen = "agendar_cita_paciente"
	ScreenHistorialPaciente   Screen = "historial_paciente"

	ScreenUsuarios     Screen = "usuarios"
	ScreenEstadisticas Screen = "estadisticas"
)

// Route is a named entry in a screen tree. Endpoint is the backend path the
// screen reads, if any; Scope names the query parameter that carries the
// signed-in user's id.
type Route struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Screen   Screen `json:"screen"`
	Endpoint string `json:"endpoint,omitempty"`
	Scope    string `json:"scope,omitempty"`
}

const (
	RouteDashboard = "Dashboard"
	RouteLoading   = "Loading"
	RouteInicio    = "Inicio"
	RouteLogin     = "Login"
)

var loadingRoutes = []Route{
	{Name: RouteLoading, Screen: ScreenLoading},
}

var authRoutes = []Route{
	{Name: RouteInicio, Title: "Inicio", Screen: ScreenInicio},
	{Name: RouteLogin, Title: "Iniciar sesión", Screen: ScreenLogin},
	{Name: "TipoUsuario", Title: "Tipo de usuario", Screen: ScreenTipoUsuario},
	{Name: "RegisterPaciente", Title: "Registro de paciente", Screen: ScreenRegisterPaciente},
	{Name: "RegisterMedico", Title: "Registro de médico", Screen: ScreenRegisterMedico},
}

var dashboards = map[model.Role]Route{
	model.RoleAdmin:    {Name: RouteDashboard, Title: "Panel Admin", Screen: ScreenAdminDashboard, Endpoint: "estadisticas"},
	model.RoleMedico:   {Name: RouteDashboard, Title: "Panel Médico", Screen: ScreenMedicoDashboard},
	model.RolePaciente: {Name: RouteDashboard, Title: "Panel Paciente", Screen: ScreenPacienteDashboard},
}

// sharedRoutes are mounted for every role.
var sharedRoutes = []Route{
	{Name: "Citas", Title: "Citas Médicas", Screen: ScreenCitas, Endpoint: "citas"},
	{Name: "Pacientes", Title: "Pacientes", Screen: ScreenPacientes, Endpoint: "pacientes"},
	{Name: "Medicos", Title: "Médicos", Screen: ScreenMedicos, Endpoint: "medicos"},
	{Name: "Especialidades", Title: "Especialidades", Screen: ScreenEspecialidades, Endpoint: "especialidades"},
	{Name: "Consultorios", Title: "Consultorios", Screen: ScreenConsultorios, Endpoint: "consultorios"},
	{Name: "Eps", Title: "EPS", Screen: ScreenEps, Endpoint: "eps"},
	{Name: "Administradores", Title: "Administradores", Screen: ScreenAdministradores, Endpoint: "administradores"},
	{Name: "Perfil", Title: "Mi Perfil", Screen: ScreenPerfil, Endpoint: "me"},
}

var misCitasMedico = Route{Name: "MisCitas", Title: "Mis Citas", Screen: ScreenMisCitasMedico, Endpoint: "medico/mis-citas", Scope: "medico_id"}
var misCitasPaciente = Route{Name: "MisCitas", Title: "Mis Citas", Screen: ScreenMisCitasPaciente, Endpoint: "paciente/mis-citas", Scope: "paciente_id"}

var roleRoutes = map[model.Role][]Route{
	model.RoleAdmin: {
		{Name: "Usuarios", Title: "Usuarios", Screen: ScreenUsuarios, Endpoint: "users"},
		{Name: "Estadisticas", Title: "Estadísticas", Screen: ScreenEstadisticas, Endpoint: "estadisticas"},
	},
	model.RoleMedico: {
		// the generic appointment list, next to the scoped MisCitas screen
		{Name: "MisCitasMedico", Title: "Mis Citas", Screen: ScreenCitas, Endpoint: "citas"},
		{Name: "MisPacientes", Title: "Mis Pacientes", Screen: ScreenPacientes, Endpoint: "medico/mis-pacientes", Scope: "medico_id"},
		{Name: "Agenda", Title: "Mi Agenda", Screen: ScreenMiAgendaMedico, Endpoint: "medico/mi-agenda", Scope: "medico_id"},
		{Name: "MiConsultorio", Title: "Mi Consultorio", Screen: ScreenConsultorios, Endpoint: "consultorios"},
		{Name: "Reportes", Title: "Reportes", Screen: ScreenReportesMedico, Endpoint: "medico/reportes", Scope: "medico_id"},
		{Name: "HistorialMedico", Title: "Historial Médico", Screen: ScreenHistorialMedico},
	},
	model.RolePaciente: {
		{Name: "AgendarCita", Title: "Agendar Cita", Screen: ScreenAgendarCitaPaciente, Endpoint: "paciente/medicos-disponibles"},
		{Name: "MisCitasPaciente", Title: "Mis Citas", Screen: ScreenCitas, Endpoint: "citas"},
		{Name: "Historial", Title: "Mi Historial Médico", Screen: ScreenHistorialPaciente, Endpoint: "paciente/mi-historial", Scope: "paciente_id"},
		{Name: "Emergencias", Title: "Emergencias", Screen: ScreenCitas, Endpoint: "citas"},
	},
}
